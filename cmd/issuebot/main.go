package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/issuebot/cmd/issuebot/commands"
	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/logger"
)

var rootCmd = &cobra.Command{
	Use:   "issuebot",
	Short: "issuebot - answers issue references in chat",
	Long: `issuebot - answers issue references in chat.

Watches Slack for mentions like "#42", "issue-42" or "issues/42", looks the
issue up on GitHub and ZenHub, and replies with a short summary.

Available commands:
  run      - Connect to Slack and answer references
  resolve  - Resolve references in a piece of text without Slack
  history  - Show recent resolutions and stats
  am       - Manage configuration ("I am")
  version  - Show build information

Examples:
  issuebot am init             # Write a starter am.toml
  issuebot resolve "see #42"   # Dry run against the configured repo
  issuebot run -v              # Run the bot with info logging`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ResolveCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
