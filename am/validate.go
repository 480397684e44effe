package am

import (
	"net/url"
	"regexp"

	"github.com/teranos/issuebot/errors"
)

var knownScopes = map[string]bool{"channel": true, "group": true, "im": true, "mpim": true}

// Validate checks that the configuration is internally consistent.
// Credentials are not required here; see ValidateSources and ValidateChat.
func (c *Config) Validate() error {
	for _, p := range c.GetPatterns() {
		if _, err := regexp.Compile(p); err != nil {
			return errors.Wrapf(err, "extract.patterns: invalid pattern %q", p)
		}
	}

	switch c.Render.LinkTarget {
	case "", LinkTracker, LinkBoard:
	default:
		return errors.Newf("render.link_target must be %q or %q, got %q", LinkTracker, LinkBoard, c.Render.LinkTarget)
	}

	// Excerpt length: 0 = no excerpt, negative = invalid
	if c.Render.ExcerptLength < 0 {
		return errors.Newf("render.excerpt_length must be >= 0, got %d", c.Render.ExcerptLength)
	}

	if c.Dispatch.ResolveTimeoutSeconds < 0 {
		return errors.Newf("dispatch.resolve_timeout_seconds must be >= 0, got %d", c.Dispatch.ResolveTimeoutSeconds)
	}
	if c.Dispatch.RepliesPerSecond < 0 {
		return errors.Newf("dispatch.replies_per_second must be >= 0, got %f", c.Dispatch.RepliesPerSecond)
	}
	if c.Dispatch.MaxConcurrent < 0 {
		return errors.Newf("dispatch.max_concurrent must be >= 0, got %d", c.Dispatch.MaxConcurrent)
	}
	if c.Dispatch.ReplyBurst < 0 {
		return errors.Newf("dispatch.reply_burst must be >= 0, got %d", c.Dispatch.ReplyBurst)
	}

	switch c.Storage.Backend {
	case "", StorageSQLite, StorageNone:
	default:
		return errors.Newf("storage.backend must be %q or %q, got %q", StorageSQLite, StorageNone, c.Storage.Backend)
	}

	for _, scope := range c.Slack.ListenScopes {
		if !knownScopes[scope] {
			return errors.Newf("slack.listen_scopes: unknown scope %q (allowed: channel, group, im, mpim)", scope)
		}
	}

	if c.HTTP.TimeoutSeconds < 0 {
		return errors.Newf("http.timeout_seconds must be >= 0, got %d", c.HTTP.TimeoutSeconds)
	}

	for key, raw := range map[string]string{
		"tracker.base_url": c.Tracker.BaseURL,
		"board.base_url":   c.Board.BaseURL,
		"slack.api_url":    c.Slack.APIURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("%s must be an absolute URL, got %q", key, raw)
		}
	}

	return nil
}

// ValidateSources checks the identity and credentials both upstream sources need
func (c *Config) ValidateSources() error {
	if c.Tracker.Owner == "" || c.Tracker.Repo == "" {
		return errors.WithHint(
			errors.New("tracker.owner and tracker.repo are required"),
			"set [tracker] owner and repo in am.toml")
	}
	if c.Board.RepoID == "" {
		return errors.WithHint(
			errors.New("board.repo_id is required"),
			"find it with: curl https://api.github.com/repos/<owner>/<repo> | jq .id")
	}
	if c.Board.Token == "" {
		return errors.WithHint(
			errors.New("board.token is required"),
			"generate one at https://app.zenhub.com/dashboard/tokens and export ISSUEBOT_BOARD_TOKEN")
	}
	return nil
}

// ValidateChat checks the Slack credentials needed to run the bot
func (c *Config) ValidateChat() error {
	if c.Slack.AppToken == "" {
		return errors.WithHint(
			errors.New("slack.app_token is required for Socket Mode"),
			"export ISSUEBOT_SLACK_APP_TOKEN=xapp-...")
	}
	if c.Slack.BotToken == "" {
		return errors.WithHint(
			errors.New("slack.bot_token is required to post replies"),
			"export ISSUEBOT_SLACK_BOT_TOKEN=xoxb-...")
	}
	return nil
}
