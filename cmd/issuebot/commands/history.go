package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/issuebot/am"
	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/history"
	"github.com/teranos/issuebot/logger"
)

var (
	historyLimit  int
	historySince  time.Duration
	historyFormat string
)

// HistoryCmd shows recorded resolutions
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent resolutions and stats",
	Long: `Show the most recent resolutions recorded by the bot, newest first,
followed by totals for the chosen window.

Examples:
  issuebot history
  issuebot history --limit 50 --since 168h
  issuebot history --format json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	HistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent resolutions to show")
	HistoryCmd.Flags().DurationVar(&historySince, "since", 24*time.Hour, "Stats window")
	HistoryCmd.Flags().StringVarP(&historyFormat, "format", "f", formatText, "Output format: text, json, yaml")
}

type historyOutput struct {
	Recent []history.Entry `json:"recent" yaml:"recent"`
	Stats  *history.Stats  `json:"stats" yaml:"stats"`
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(historyFormat); err != nil {
		return err
	}
	cfg, err := am.Load()
	if err != nil {
		return err
	}
	store, closeStore, err := openHistory(cfg, logger.Logger.Named("db"))
	if err != nil {
		return err
	}
	defer closeStore()
	if store == nil {
		return errors.WithHint(errors.New("history is disabled"), "set storage.backend = \"sqlite\"")
	}

	recent, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	stats, err := store.Stats(cmd.Context(), time.Now().Add(-historySince))
	if err != nil {
		return err
	}

	if historyFormat != formatText {
		return writeStructured(cmd.OutOrStdout(), historyFormat, historyOutput{Recent: recent, Stats: stats})
	}

	if len(recent) == 0 {
		pterm.Info.Println("No resolutions recorded yet")
	} else {
		_ = pterm.DefaultTable.WithHasHeader().WithData(historyTable(recent)).Render()
	}
	pterm.Println()
	pterm.Info.Printfln("Last %s: %d resolutions, %d failed (%.0f%% ok), %d distinct issues, avg %.0fms",
		historySince, stats.Total, stats.Failures, stats.SuccessRate*100, stats.UniqueIssues, stats.AvgDurationMS)
	for src, n := range stats.FailuresBySrc {
		pterm.Printfln("  %s failures: %d", src, n)
	}
	return nil
}

func historyTable(entries []history.Entry) pterm.TableData {
	data := pterm.TableData{{"When", "Channel", "Match", "Outcome", "Detail", "Took"}}
	for _, e := range entries {
		detail := ""
		if e.Outcome == history.OutcomeFailure {
			detail = fmt.Sprintf("%s: %s", e.FailedSource, e.ErrorMessage)
		}
		data = append(data, []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Channel,
			e.RawMatch,
			e.Outcome,
			detail,
			strconv.FormatInt(e.DurationMS, 10) + "ms",
		})
	}
	return data
}
