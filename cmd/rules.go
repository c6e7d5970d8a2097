package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and export classification rules",
		Long: `Inspect the rules the agent starts with: the file named by
processing.rules_file, or the built-in defaults when none is configured.`,
	}
	cmd.AddCommand(newRulesListCmd(), newRulesExportCmd(), newRulesDefaultsCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := configuredRules()
			if err != nil {
				return err
			}
			return writeRuleTable(cmd.OutOrStdout(), list)
		},
	}
}

func newRulesExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configured rules as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := configuredRules()
			if err != nil {
				return err
			}
			return writeRules(cmd, output, list)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newRulesDefaultsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in rules as YAML, a starting point for processing.rules_file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeRules(cmd, output, rules.DefaultRules())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// configuredRules loads the rules through a store so they come back
// validated and in evaluation order.
func configuredRules() ([]rules.Rule, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	seed, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	store, err := rules.NewStore(seed...)
	if err != nil {
		return nil, err
	}
	return store.List(), nil
}

func writeRules(cmd *cobra.Command, output string, list []rules.Rule) error {
	if output == "" {
		return rules.Encode(cmd.OutOrStdout(), list)
	}
	if err := rules.WriteFile(output, list); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Rules written to: %s\n", output)
	return nil
}

func writeRuleTable(w io.Writer, list []rules.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRIORITY\tACTIVE\tLABEL\tSKIP AI")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\t%t\n",
			r.ID, r.Name, r.Priority, r.Active, r.Action.Label, r.Action.SkipAI)
	}
	return tw.Flush()
}
