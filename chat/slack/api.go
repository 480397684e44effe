// Package slack connects issuebot to Slack: Socket Mode for inbound events
// and the Web API for replies.
package slack

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	slackgo "github.com/slack-go/slack"

	"github.com/teranos/issuebot/chat"
	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/render"
)

// DefaultAPIURL is the Slack Web API root
const DefaultAPIURL = "https://slack.com/api/"

// Errors Slack reports that no amount of retrying will fix
var permanentErrors = map[string]bool{
	"invalid_auth":           true,
	"not_authed":             true,
	"account_inactive":       true,
	"token_revoked":          true,
	"not_allowed_token_type": true,
	"missing_scope":          true,
}

// errorCode matches bare Slack error codes such as "channel_not_found"
var errorCode = regexp.MustCompile(`^[a-z_]+$`)

// APIError is an ok=false response from the Web API
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return e.Method + ": " + e.Code
}

// Permanent reports whether retrying the call cannot succeed
func (e *APIError) Permanent() bool {
	return permanentErrors[e.Code]
}

// Client calls the Slack Web API with the bot token, and opens Socket Mode
// connections with the app-level token
type Client struct {
	api        *slackgo.Client
	newBackOff func() backoff.BackOff
}

// NewClient builds a Web API client. apiURL defaults to DefaultAPIURL.
func NewClient(httpClient *http.Client, apiURL, appToken, botToken string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return &Client{
		api: slackgo.New(botToken,
			slackgo.OptionHTTPClient(httpClient),
			slackgo.OptionAPIURL(apiURL),
			slackgo.OptionAppLevelToken(appToken),
		),
		newBackOff: defaultReplyBackOff,
	}
}

func defaultReplyBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(bo, 3)
}

// WithRetry replaces the backoff used between reply attempts
func (c *Client) WithRetry(newBackOff func() backoff.BackOff) *Client {
	c.newBackOff = newBackOff
	return c
}

// Identity is who the bot token belongs to
type Identity struct {
	UserID string
	User   string
	TeamID string
	Team   string
	BotID  string
}

// AuthTest reports the bot's identity
func (c *Client) AuthTest(ctx context.Context) (Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, apiError("auth.test", err)
	}
	return Identity{
		UserID: resp.UserID,
		User:   resp.User,
		TeamID: resp.TeamID,
		Team:   resp.Team,
		BotID:  resp.BotID,
	}, nil
}

// PostMessage sends one payload to a conversation
func (c *Client) PostMessage(ctx context.Context, conv chat.Conversation, payload render.Payload) error {
	// Text is already escaped by the renderer
	opts := []slackgo.MsgOption{slackgo.MsgOptionText(payload.Text, false)}
	if len(payload.Attachments) > 0 {
		opts = append(opts, slackgo.MsgOptionAttachments(toAttachments(payload.Attachments)...))
	}
	if conv.ThreadTS != "" {
		opts = append(opts, slackgo.MsgOptionTS(conv.ThreadTS))
	}
	if _, _, err := c.api.PostMessageContext(ctx, conv.Channel, opts...); err != nil {
		return apiError("chat.postMessage", err)
	}
	return nil
}

// Reply implements chat.Replier. Transport failures and rate limits are
// retried; errors Slack reports for the request itself are not.
func (c *Client) Reply(ctx context.Context, conv chat.Conversation, payload render.Payload) error {
	return backoff.Retry(func() error {
		err := c.PostMessage(ctx, conv, payload)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var limited *slackgo.RateLimitedError
		if errors.As(err, &limited) {
			timer := time.NewTimer(limited.RetryAfter)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return backoff.Permanent(err)
			}
		}
		return err
	}, backoff.WithContext(c.newBackOff(), ctx))
}

var _ chat.Replier = (*Client)(nil)

func toAttachments(in []render.Attachment) []slackgo.Attachment {
	out := make([]slackgo.Attachment, 0, len(in))
	for _, a := range in {
		fields := make([]slackgo.AttachmentField, 0, len(a.Fields))
		for _, f := range a.Fields {
			fields = append(fields, slackgo.AttachmentField{Title: f.Title, Value: f.Value, Short: f.Short})
		}
		out = append(out, slackgo.Attachment{
			Fallback:  a.Fallback,
			Color:     a.Color,
			Title:     a.Title,
			TitleLink: a.TitleLink,
			Fields:    fields,
		})
	}
	return out
}

// apiError turns slack-go errors into APIError or a rate limit error with a hint
func apiError(method string, err error) error {
	var limited *slackgo.RateLimitedError
	if errors.As(err, &limited) {
		return errors.WithHintf(errors.Wrapf(err, "%s rate limited", method),
			"retry after %s", limited.RetryAfter)
	}
	var resp slackgo.SlackErrorResponse
	if errors.As(err, &resp) {
		return &APIError{Method: method, Code: resp.Err}
	}
	if errorCode.MatchString(err.Error()) {
		return &APIError{Method: method, Code: err.Error()}
	}
	return errors.Wrapf(err, "%s request failed", method)
}
