package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/pipeline"
	"github.com/teemow/todoagent/internal/tools/batch"
)

func newRunCmd() *cobra.Command {
	var (
		maxEmails int
		query     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process unprocessed inbox emails once",
		Long: `Run one batch cycle: fetch emails that carry neither TodoAgent_Processed nor
TodoAgent_Skip, classify them and create tasks for the actionable ones.

With --query the given Gmail search replaces the batch query and emails are
processed without the inter-email delay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, globals)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if query != "" {
				limit := maxEmails
				if limit <= 0 {
					limit = a.cfg.Schedule.MaxEmails
				}
				results, err := a.agent.ProcessEmails(ctx, query, limit)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), results)
			}

			st := a.agent.RunManual(ctx, maxEmails)
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d processed, %d tasks created, %d skipped, %d failed in %s\n",
				st.LastRunID, st.LastProcessed, st.LastTasksCreated, st.LastSkipped, st.LastFailed, st.LastRunDuration)
			if st.LastError != "" {
				return errors.New(st.LastError)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxEmails, "max", 0, "Maximum emails to process (default: schedule.max_emails)")
	cmd.Flags().StringVar(&query, "query", "", "Gmail search query to process instead of the batch query")
	return cmd
}

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <email-id>...",
		Short: "Process specific emails by Gmail message ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			ids, err := batch.ParseIDs(toAnySlice(args), "email-id")
			if err != nil {
				return err
			}

			a, err := newApp(ctx, globals)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			results := make([]pipeline.Result, 0, len(ids))
			for _, id := range ids {
				results = append(results, a.agent.ProcessEmail(ctx, id))
			}
			return printResults(cmd.OutOrStdout(), results)
		},
	}
}

// printResults writes the batch summary and fails when any email failed.
func printResults(w io.Writer, results []pipeline.Result) error {
	converted := make([]batch.Result, 0, len(results))
	for _, r := range results {
		converted = append(converted, batch.FromPipeline(r))
	}
	summary := batch.Summarize(converted)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d emails failed", summary.Failed, summary.Total)
	}
	return nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
