package commands

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/issuebot/am"
	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/db"
	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/history"
	"github.com/teranos/issuebot/internal/httpclient"
	"github.com/teranos/issuebot/internal/util"
	"github.com/teranos/issuebot/pipeline"
	"github.com/teranos/issuebot/reference"
	"github.com/teranos/issuebot/render"
	"github.com/teranos/issuebot/resolve"
	"github.com/teranos/issuebot/source/board"
	"github.com/teranos/issuebot/source/tracker"
)

// newHTTPClient builds the outbound client shared by both sources and Slack
func newHTTPClient(cfg *am.Config) *httpclient.SaferClient {
	return httpclient.NewSaferClientWithOptions(
		time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second,
		httpclient.Options{
			BlockPrivateIP: util.Ptr(cfg.HTTP.BlockPrivateIPs),
			UserAgent:      cfg.GetUserAgent(),
		},
	)
}

// newPipeline wires extraction, both sources, merging and rendering from cfg.
// recorder may be nil.
func newPipeline(cfg *am.Config, client *httpclient.SaferClient, replier chat.Replier, recorder history.Recorder, log *zap.SugaredLogger) (*pipeline.Pipeline, error) {
	extractor, err := reference.NewExtractor(cfg.GetPatterns())
	if err != nil {
		return nil, errors.WithHint(err, "check extract.patterns")
	}

	trackerClient, err := tracker.New(tracker.Config{
		BaseURL: cfg.Tracker.BaseURL,
		Token:   cfg.Tracker.Token,
		Owner:   cfg.Tracker.Owner,
		Repo:    cfg.Tracker.Repo,
	}, client.Client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tracker client")
	}
	boardClient, err := board.New(board.Config{
		BaseURL: cfg.Board.BaseURL,
		Token:   cfg.Board.Token,
		RepoID:  cfg.Board.RepoID,
	}, client.Client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create board client")
	}

	orchestrator, err := resolve.NewOrchestrator(trackerClient, boardClient)
	if err != nil {
		return nil, err
	}

	aggregator := resolve.Aggregator{ExcerptLength: cfg.GetExcerptLength()}
	if cfg.Render.LinkTarget == am.LinkBoard {
		webURL := cfg.Board.WebURL
		if webURL == "" {
			webURL = am.DefaultBoardWebURL
		}
		aggregator.BoardLinkBase = resolve.BoardLinkBase(webURL, cfg.Tracker.Owner, cfg.Tracker.Repo)
	}

	renderer := render.New()
	renderer.Color = cfg.GetColor()

	return pipeline.New(pipeline.Config{
		Extractor:    extractor,
		Orchestrator: orchestrator,
		Aggregator:   aggregator,
		Renderer:     renderer,
		Replier:      replier,
		Recorder:     recorder,
		Timeout:      time.Duration(cfg.Dispatch.ResolveTimeoutSeconds) * time.Second,
		Concurrency:  cfg.Dispatch.MaxConcurrent,
		Logger:       log,
	})
}

// openHistory opens the history store, or returns nil when storage is disabled.
// The returned close func is always safe to call.
func openHistory(cfg *am.Config, log *zap.SugaredLogger) (*history.Store, func(), error) {
	if cfg.Storage.Backend == am.StorageNone {
		return nil, func() {}, nil
	}
	conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), log)
	if err != nil {
		return nil, func() {}, errors.WithHint(err, "set storage.backend = \"none\" to run without history")
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			log.Warnw("Failed to close history database", "error", err)
		}
	}
	return history.NewStore(conn), closeFn, nil
}
