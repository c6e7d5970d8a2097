package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/agent"
)

func newClassifyCmd() *cobra.Command {
	var (
		maxEmails int
		query     string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Preview how emails would be handled without changing anything",
		Long: `Dry-run the decision pipeline over the emails matching --query (default:
schedule.base_query). No labels are written and no tasks are created.

Emails that no label or rule decides are classified by the language model in
groups of five when an OpenAI key is configured. Those calls count towards the
AI history used for statistics and rule suggestions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, globals)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			previews, err := a.agent.PreviewEmails(ctx, query, maxEmails)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(previews); encErr != nil {
					return encErr
				}
			} else if tableErr := writePreviewTable(cmd.OutOrStdout(), previews); tableErr != nil {
				return tableErr
			}
			return err
		},
	}

	cmd.Flags().IntVar(&maxEmails, "max", 10, "Maximum emails to preview")
	cmd.Flags().StringVar(&query, "query", "", "Gmail search query (default: schedule.base_query)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print previews as JSON, including full AI verdicts")
	return cmd
}

func writePreviewTable(w io.Writer, previews []agent.Preview) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tDECISION\tLABEL\tDETAIL\tSUBJECT")
	for _, p := range previews {
		detail := p.Rule
		if p.Verdict != nil {
			detail = fmt.Sprintf("confidence %.2f", p.Verdict.Confidence)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.EmailID, p.Status, p.Decision, p.Label, detail, p.Subject)
	}
	return tw.Flush()
}
