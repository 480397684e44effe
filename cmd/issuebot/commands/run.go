package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/issuebot/am"
	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/chat/slack"
	"github.com/teranos/issuebot/history"
	"github.com/teranos/issuebot/logger"
	"github.com/teranos/issuebot/server"
)

// RunCmd connects to Slack and answers references until interrupted
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Slack and answer issue references",
	Long: `Connect to Slack over Socket Mode and answer every issue reference
in channels and direct messages the bot can see.

Requires tracker, board and slack credentials (see 'issuebot am init').
With server.enabled the operator endpoint is served alongside.`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := am.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSources(); err != nil {
		return err
	}
	if err := cfg.ValidateChat(); err != nil {
		return err
	}
	log := logger.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openHistory(cfg, log.Named("db"))
	if err != nil {
		return err
	}
	defer closeStore()

	var recorder history.Recorder = history.Nop{}
	var reader server.HistoryReader
	if store != nil {
		recorder = store
		reader = store
	}

	client := newHTTPClient(cfg)
	api := slack.NewClient(client.Client, cfg.Slack.APIURL, cfg.Slack.AppToken, cfg.Slack.BotToken)
	replier := chat.NewDispatcher(api, cfg.Dispatch.RepliesPerSecond, cfg.Dispatch.ReplyBurst)

	p, err := newPipeline(cfg, client, replier, recorder, log.Named("pipeline"))
	if err != nil {
		return err
	}

	listener := slack.NewListener(api, p, slack.ListenerConfig{
		Scopes:        cfg.Slack.ListenScopes,
		ReplyInThread: cfg.Slack.ReplyInThread,
		Logger:        log.Named("slack"),
	})

	log.Infow("Starting issuebot",
		"repo", cfg.Tracker.Owner+"/"+cfg.Tracker.Repo,
		"board_repo_id", cfg.Board.RepoID,
		"history", store != nil,
		"server", cfg.Server.Enabled,
	)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := server.New(p, reader, log.Named("server"))
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.Server.Address)
		})
	}
	g.Go(func() error {
		return listener.Run(ctx)
	})

	err = g.Wait()
	log.Infow("issuebot stopped")
	return err
}
