package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/issuebot/am"
	"github.com/teranos/issuebot/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage issuebot configuration",
	Long: `am - Manage issuebot configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (ISSUEBOT_* prefix, e.g. ISSUEBOT_SLACK_BOT_TOKEN)
2. Project config (am.toml in the current or a parent directory)
3. User config (~/.issuebot/am.toml)
4. System config (/etc/issuebot/am.toml)
5. Default values

Examples:
  issuebot am init                 # Write a starter am.toml here
  issuebot am show --format json   # Show effective configuration
  issuebot am check am.toml        # Find misspelled keys`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter am.toml containing every setting at its default,
with placeholder repository values to fill in.

An existing file is kept as .back1 (and .back1 as .back2).`,
	Args: cobra.NoArgs,
	RunE: runAmInit,
}

var amCheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Check configuration files for unknown keys and invalid values",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAmCheck,
}

var (
	configFormat string
	initPath     string
	initForce    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().StringVar(&initPath, "path", am.ConfigFileName, "Where to write the file")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amCheckCmd)
}

// masked returns a copy of cfg safe to print
func masked(cfg *am.Config) *am.Config {
	c := *cfg
	c.Tracker.Token = maskSet(c.Tracker.Token)
	c.Board.Token = maskSet(c.Board.Token)
	c.Slack.AppToken = maskSet(c.Slack.AppToken)
	c.Slack.BotToken = maskSet(c.Slack.BotToken)
	return &c
}

func maskSet(secret string) string {
	if secret == "" {
		return ""
	}
	return am.Mask(secret)
}

func runAmShow(cmd *cobra.Command, _ []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	out := cmd.OutOrStdout()
	cfg = masked(cfg)

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# issuebot configuration\n%s", data)
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# issuebot configuration\n%s", data)
	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(initPath); err == nil && !initForce {
		return errors.WithHint(errors.Newf("%s already exists", initPath), "pass --force to overwrite it (a backup is kept)")
	}
	cfg, err := am.ExampleConfig()
	if err != nil {
		return err
	}
	if err := am.WriteConfig(cfg, initPath); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %s", initPath)
	pterm.Info.Println("Fill in tracker.owner, tracker.repo and board.repo_id, then set tokens via ISSUEBOT_* environment variables")
	return nil
}

func runAmCheck(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		result, err := am.CheckFile(path)
		if err != nil {
			pterm.Error.Printfln("%s: %v", path, err)
			failed++
			continue
		}
		if result.OK() {
			pterm.Success.Printfln("%s: ok", path)
			continue
		}
		failed++
		for _, key := range result.UnknownKeys {
			pterm.Warning.Printfln("%s: unknown key %q", path, key)
		}
		if result.Err != nil {
			pterm.Error.Printfln("%s: %v", path, result.Err)
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d config files have problems", failed, len(args))
	}
	return nil
}
