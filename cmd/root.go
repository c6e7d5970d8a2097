package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the todoagent application
var rootCmd = &cobra.Command{
	Use:   "todoagent",
	Short: "Turns actionable Gmail messages into Google Tasks",
	Long: `todoagent classifies incoming Gmail messages with user-defined rules and an
optional AI classifier, creates Google Tasks for the actionable ones and
records its progress as Gmail labels.

It can run as:
  - A one-shot batch run (default)
  - A scheduler with a webhook listener
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "todoagent version %s\n" .Version}}`)

	// Without a subcommand, run one batch cycle.
	os.Args = withDefaultCommand(os.Args, "run")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDefaultCommand appends def when args name no subcommand and no flag.
func withDefaultCommand(args []string, def string) []string {
	if len(args) == 1 {
		return append(args, def)
	}
	return args
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.configPath, "config", "", "Config file (default: ~/.config/todoagent/config.yaml)")
	flags.StringVar(&globals.account, "account", "", "Google account name, overrides google.account")
	flags.BoolVar(&globals.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&globals.logFormat, "log-format", "", "Log format: text or json, overrides log.format")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
