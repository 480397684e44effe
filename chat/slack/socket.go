package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/errors"
)

// ListenerConfig configures a Listener
type ListenerConfig struct {
	Scopes        []string // channel types to answer in; empty means all
	ReplyInThread bool
	PingInterval  time.Duration     // longest gap between Slack pings before reconnecting; 0 keeps the library default
	Dialer        *websocket.Dialer // nil dials through the environment proxy
	Debug         bool              // log every Socket Mode frame
	Logger        *zap.SugaredLogger
}

// Listener receives messages over Socket Mode and hands them to a chat.Handler
type Listener struct {
	api           *Client
	handler       chat.Handler
	scopes        map[string]bool
	replyInThread bool
	options       []socketmode.Option
	logger        *zap.SugaredLogger

	botUserID string
	wg        sync.WaitGroup
}

// NewListener builds a Listener that opens connections through api
func NewListener(api *Client, handler chat.Handler, cfg ListenerConfig) *Listener {
	l := &Listener{
		api:           api,
		handler:       handler,
		replyInThread: cfg.ReplyInThread,
		logger:        cfg.Logger,
	}
	if len(cfg.Scopes) > 0 {
		l.scopes = make(map[string]bool, len(cfg.Scopes))
		for _, s := range cfg.Scopes {
			l.scopes[s] = true
		}
	}
	if l.logger == nil {
		l.logger = zap.NewNop().Sugar()
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	l.options = []socketmode.Option{
		socketmode.OptionDialer(dialer),
		socketmode.OptionDebug(cfg.Debug),
		socketmode.OptionLog(zap.NewStdLog(l.logger.Desugar().Named("socketmode"))),
	}
	if cfg.PingInterval > 0 {
		l.options = append(l.options, socketmode.OptionPingInterval(cfg.PingInterval))
	}
	return l
}

// Run connects and serves until ctx is cancelled or Slack rejects the
// credentials. Lost connections are re-established by the Socket Mode
// client. In-flight handlers are waited for before Run returns.
func (l *Listener) Run(ctx context.Context) error {
	defer l.wg.Wait()

	if id, err := l.api.AuthTest(ctx); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Permanent() {
			return errors.WithHint(err, "check slack.bot_token")
		}
		l.logger.Warnw("Could not identify bot user, self-replies are filtered by bot_id only", "error", err)
	} else {
		l.botUserID = id.UserID
		l.logger.Infow("Connected to Slack team",
			"team", id.Team,
			"team_id", id.TeamID,
			"bot_user", id.User,
		)
	}

	sm := socketmode.New(l.api.api, l.options...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		l.consume(runCtx, ctx, sm)
	}()

	err := sm.RunContext(runCtx)
	cancel()
	<-consumed

	if ctx.Err() != nil || err == nil {
		return nil
	}
	err = apiError("apps.connections.open", err)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Permanent() {
		return errors.WithHint(err, "check slack.app_token")
	}
	return err
}

// consume drains the Socket Mode event stream until runCtx ends.
// Handlers get handlerCtx so they outlive a single connection.
func (l *Listener) consume(runCtx, handlerCtx context.Context, sm *socketmode.Client) {
	for {
		select {
		case <-runCtx.Done():
			return
		case evt := <-sm.Events:
			l.handleEvent(handlerCtx, sm, evt)
		}
	}
}

func (l *Listener) handleEvent(ctx context.Context, sm *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		if e, ok := evt.Data.(*slackgo.ConnectingEvent); ok {
			l.logger.Debugw("Connecting to Socket Mode", "attempt", e.Attempt, "connection", e.ConnectionCount)
		}

	case socketmode.EventTypeConnected:
		if e, ok := evt.Data.(*socketmode.ConnectedEvent); ok {
			l.logger.Infow("Socket Mode connected", "connection", e.ConnectionCount)
		}

	case socketmode.EventTypeHello:
		if evt.Request != nil {
			l.logger.Infow("Socket Mode ready",
				"app_id", evt.Request.ConnectionInfo.AppID,
				"connections", evt.Request.NumConnections,
			)
		}

	case socketmode.EventTypeConnectionError:
		if e, ok := evt.Data.(*slackgo.ConnectionErrorEvent); ok {
			l.logger.Warnw("Socket Mode connection failed, retrying",
				"error", e.ErrorObj,
				"attempt", e.Attempt,
				"wait", e.Backoff,
			)
		}

	case socketmode.EventTypeIncomingError:
		l.logger.Warnw("Socket Mode connection lost, reconnecting", "error", evt.Data)

	case socketmode.EventTypeInvalidAuth:
		l.logger.Errorw("Slack rejected the app token")

	case socketmode.EventTypeErrorBadMessage:
		// Slack redelivers anything not acknowledged within 3 seconds
		if e, ok := evt.Data.(*socketmode.ErrorBadMessage); ok {
			l.logger.Debugw("Ignoring unparseable envelope", "error", e.Cause)
			var req socketmode.Request
			if json.Unmarshal(e.Message, &req) == nil && req.EnvelopeID != "" {
				sm.Ack(req)
			}
		}

	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			sm.Ack(*evt.Request)
		}
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		l.dispatch(ctx, event)

	default:
		if evt.Request != nil && evt.Request.EnvelopeID != "" {
			sm.Ack(*evt.Request)
		}
		l.logger.Debugw("Ignoring Socket Mode event", "type", evt.Type)
	}
}

// dispatch runs the handler without blocking the event loop
func (l *Listener) dispatch(ctx context.Context, event slackevents.EventsAPIEvent) {
	msg, ok := l.toMessage(event)
	if !ok {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.handler.HandleMessage(ctx, msg)
	}()
}

// toMessage keeps plain user messages in allowed scopes
func (l *Listener) toMessage(event slackevents.EventsAPIEvent) (chat.Message, bool) {
	if event.Type != slackevents.CallbackEvent {
		return chat.Message{}, false
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok || ev.SubType != "" || ev.BotID != "" {
		return chat.Message{}, false
	}
	if ev.User == "" || ev.User == l.botUserID || ev.Text == "" {
		return chat.Message{}, false
	}
	if l.scopes != nil && !l.scopes[ev.ChannelType] {
		return chat.Message{}, false
	}

	conv := chat.Conversation{
		TeamID:   event.TeamID,
		Channel:  ev.Channel,
		User:     ev.User,
		ThreadTS: ev.ThreadTimeStamp,
	}
	if conv.ThreadTS == "" && l.replyInThread {
		conv.ThreadTS = ev.TimeStamp
	}

	return chat.Message{
		Text:         ev.Text,
		Conversation: conv,
		Scope:        ev.ChannelType,
		TS:           ev.TimeStamp,
	}, true
}
