package commands

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/issuebot/am"
	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/logger"
	"github.com/teranos/issuebot/render"
)

// Output formats shared by resolve and history
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var resolveFormat string

// ResolveCmd runs the pipeline on text given on the command line
var ResolveCmd = &cobra.Command{
	Use:   "resolve <text>...",
	Short: "Resolve issue references in text without Slack",
	Long: `Extract issue references from the given text, fetch them from GitHub
and ZenHub, and print the replies the bot would post.

Nothing is posted to Slack and nothing is recorded in history.

Examples:
  issuebot resolve "see #42"
  issuebot resolve --format json "issues/7 and issue-7"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	ResolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", formatText, "Output format: text, json, yaml")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if err := checkFormat(resolveFormat); err != nil {
		return err
	}
	cfg, err := am.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSources(); err != nil {
		return err
	}

	var replies chat.Collector
	p, err := newPipeline(cfg, newHTTPClient(cfg), &replies, nil, logger.Logger.Named("pipeline"))
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	p.Process(cmd.Context(), chat.Message{Text: text, Conversation: chat.Conversation{Channel: "cli"}})

	payloads := replies.Payloads()
	if resolveFormat == formatText {
		printPayloads(payloads)
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), resolveFormat, payloads)
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return errors.Newf("unsupported format: %s (supported: text, json, yaml)", format)
}

// writeStructured encodes v as JSON or YAML
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkFormat(format)
}

func printPayloads(payloads []render.Payload) {
	if len(payloads) == 0 {
		pterm.Info.Println("No issue references found")
		return
	}
	for _, p := range payloads {
		if p.IsWarning() {
			pterm.Warning.Println(strings.TrimPrefix(p.Text, ":warning: "))
			continue
		}
		for _, a := range p.Attachments {
			pterm.DefaultSection.Println(a.Title)
			if a.TitleLink != "" {
				pterm.Println(a.TitleLink)
			}
			data := pterm.TableData{}
			for _, f := range a.Fields {
				title := f.Title
				if title == "" {
					title = "Body"
				}
				data = append(data, []string{title, f.Value})
			}
			_ = pterm.DefaultTable.WithData(data).Render()
		}
	}
}
