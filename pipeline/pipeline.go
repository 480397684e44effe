// Package pipeline wires extraction, resolution, rendering and replies for
// one inbound message.
//
// Every reference found in a message is resolved on its own goroutine and
// answered as soon as it completes. One reference failing never delays or
// aborts another, and every reference gets exactly one reply.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/db"
	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/history"
	"github.com/teranos/issuebot/logger"
	"github.com/teranos/issuebot/reference"
	"github.com/teranos/issuebot/render"
	"github.com/teranos/issuebot/resolve"
)

// Config collects the collaborators of a Pipeline
type Config struct {
	Extractor    *reference.Extractor
	Orchestrator *resolve.Orchestrator
	Aggregator   resolve.Aggregator
	Renderer     *render.Renderer
	Replier      chat.Replier
	Recorder     history.Recorder // nil records nothing

	// Timeout bounds each reference's fetches; 0 means no deadline
	Timeout time.Duration
	// Concurrency caps references resolved at once per message; 0 uses DefaultConcurrency
	Concurrency int
	Logger      *zap.SugaredLogger
}

// DefaultConcurrency is the per-message cap on in-flight references
const DefaultConcurrency = 8

// Pipeline handles messages end to end
type Pipeline struct {
	extractor    *reference.Extractor
	orchestrator *resolve.Orchestrator
	aggregator   resolve.Aggregator
	renderer     *render.Renderer
	replier      chat.Replier
	recorder     history.Recorder
	timeout      time.Duration
	concurrency  int
	logger       *zap.SugaredLogger
}

// New validates cfg and builds a Pipeline
func New(cfg Config) (*Pipeline, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("pipeline needs an extractor")
	}
	if cfg.Orchestrator == nil {
		return nil, errors.New("pipeline needs an orchestrator")
	}
	if cfg.Replier == nil {
		return nil, errors.New("pipeline needs a replier")
	}
	p := &Pipeline{
		extractor:    cfg.Extractor,
		orchestrator: cfg.Orchestrator,
		aggregator:   cfg.Aggregator,
		renderer:     cfg.Renderer,
		replier:      cfg.Replier,
		recorder:     cfg.Recorder,
		timeout:      cfg.Timeout,
		concurrency:  cfg.Concurrency,
		logger:       cfg.Logger,
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.renderer == nil {
		p.renderer = render.New()
	}
	if p.recorder == nil {
		p.recorder = history.Nop{}
	}
	if p.logger == nil {
		p.logger = logger.ComponentLogger("pipeline")
	}
	return p, nil
}

// WithReplier returns a copy of p that sends replies to r instead
func (p *Pipeline) WithReplier(r chat.Replier) *Pipeline {
	c := *p
	c.replier = r
	return &c
}

// Resolution is what happened to one reference
type Resolution struct {
	Reference reference.Reference
	Result    resolve.Result
	Payload   render.Payload
	Duration  time.Duration
	ReplyErr  error
}

// Report lists the resolutions of one message in completion order
type Report struct {
	RequestID   string
	Resolutions []Resolution
}

// HandleMessage implements chat.Handler.
// Work already started is not cancelled when the listener shuts down.
func (p *Pipeline) HandleMessage(ctx context.Context, msg chat.Message) {
	p.Process(context.WithoutCancel(ctx), msg)
}

// Process extracts references from msg and resolves, renders and replies to
// each one independently. It returns once every reply has been attempted.
func (p *Pipeline) Process(ctx context.Context, msg chat.Message) Report {
	report := Report{RequestID: uuid.NewString()}

	ctx = logger.WithRequestID(ctx, report.RequestID)
	ctx = logger.WithChannel(ctx, msg.Conversation.Channel)
	log := logger.FromContext(ctx, p.logger)

	refs := p.extractor.Extract(msg.Text)
	if len(refs) == 0 {
		return report
	}
	log.Debugw("Resolving references",
		logger.FieldReferences, len(refs),
		logger.FieldUserID, msg.Conversation.User,
	)

	done := make(chan Resolution, len(refs))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, ref := range refs {
		g.Go(func() error {
			done <- p.handle(ctx, log, msg, report.RequestID, ref)
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	for r := range done {
		report.Resolutions = append(report.Resolutions, r)
	}
	return report
}

// Resolve fetches and merges one issue, bounded by the configured timeout
func (p *Pipeline) Resolve(ctx context.Context, issueID int) resolve.Result {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.aggregator.MergeOutcomes(issueID, p.orchestrator.Resolve(ctx, issueID))
}

func (p *Pipeline) handle(ctx context.Context, log *zap.SugaredLogger, msg chat.Message, requestID string, ref reference.Reference) Resolution {
	start := time.Now()
	result := p.Resolve(ctx, ref.IssueID)
	took := time.Since(start)

	res := Resolution{
		Reference: ref,
		Result:    result,
		Payload:   p.renderer.Render(result),
		Duration:  took,
	}

	if f := result.Failure; f != nil {
		log.Warnw("Could not resolve issue",
			logger.FieldIssueID, ref.IssueID,
			logger.FieldSource, f.SourceName,
			logger.FieldErrorKind, string(f.Kind),
			logger.FieldError, f.ErrorMessage,
			logger.FieldDurationMS, took.Milliseconds(),
		)
	} else {
		log.Debugw("Resolved issue",
			logger.FieldIssueID, ref.IssueID,
			logger.FieldRawMatch, ref.RawMatch,
			logger.FieldDurationMS, took.Milliseconds(),
		)
	}

	if err := p.replier.Reply(ctx, msg.Conversation, res.Payload); err != nil {
		res.ReplyErr = err
		log.Errorw("Reply failed",
			logger.FieldIssueID, ref.IssueID,
			logger.FieldError, err,
		)
	}

	entry := history.NewEntry(requestID, msg.Conversation.Channel, msg.Conversation.User, ref, result, took)
	if err := p.recorder.Record(ctx, entry); err != nil {
		if db.IsDatabaseClosed(err) {
			log.Debugw("History closed, resolution not recorded", logger.FieldIssueID, ref.IssueID)
		} else {
			log.Warnw("Could not record resolution", logger.FieldIssueID, ref.IssueID, logger.FieldError, err)
		}
	}

	return res
}
