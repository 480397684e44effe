package am

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPatterns match "#42", "issue-42" and "issues/42"
var DefaultPatterns = []string{
	`#[0-9]+`,
	`issue-[0-9]+`,
	`issues/[0-9]+`,
}

// Defaults that are also applied when a loaded value is zero
const (
	DefaultTrackerBaseURL = "https://api.github.com/"
	DefaultBoardBaseURL   = "https://api.zenhub.com/p1"
	DefaultBoardWebURL    = "https://app.zenhub.com/workspace/o"
	DefaultSlackAPIURL    = "https://slack.com/api/"
	DefaultExcerptLength  = 160
	DefaultColor          = "#5e60ba"
	DefaultUserAgent      = "issuebot/1.0"
	DefaultDatabasePath   = "issuebot.db"
	DefaultServerAddress  = "127.0.0.1:8787"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tracker.base_url", DefaultTrackerBaseURL)

	v.SetDefault("board.base_url", DefaultBoardBaseURL)
	v.SetDefault("board.web_url", DefaultBoardWebURL)

	v.SetDefault("slack.api_url", DefaultSlackAPIURL)
	v.SetDefault("slack.listen_scopes", []string{"channel", "group", "im", "mpim"}) // ambient + direct
	v.SetDefault("slack.reply_in_thread", false)

	v.SetDefault("extract.patterns", DefaultPatterns)

	v.SetDefault("render.link_target", LinkTracker)
	v.SetDefault("render.excerpt_length", DefaultExcerptLength)
	v.SetDefault("render.color", DefaultColor)

	v.SetDefault("dispatch.resolve_timeout_seconds", 30)
	v.SetDefault("dispatch.replies_per_second", 1.0) // Slack allows ~1 message/sec/channel
	v.SetDefault("dispatch.reply_burst", 3)
	v.SetDefault("dispatch.max_concurrent", 8)

	v.SetDefault("storage.backend", StorageSQLite)
	v.SetDefault("storage.path", DefaultDatabasePath)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.address", DefaultServerAddress)

	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("http.block_private_ips", true)
	v.SetDefault("http.user_agent", DefaultUserAgent)
}

// BindSensitiveEnvVars explicitly binds credentials to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("tracker.token", "ISSUEBOT_TRACKER_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("board.token", "ISSUEBOT_BOARD_TOKEN", "ZENHUB_TOKEN")
	_ = v.BindEnv("slack.app_token", "ISSUEBOT_SLACK_APP_TOKEN", "SLACK_APP_TOKEN")
	_ = v.BindEnv("slack.bot_token", "ISSUEBOT_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN")
	_ = v.BindEnv("storage.path", "ISSUEBOT_STORAGE_PATH")
}

// BindIdentityEnvVars binds the repository identity keys, which have no
// defaults and so are invisible to AutomaticEnv during Unmarshal
func BindIdentityEnvVars(v *viper.Viper) {
	_ = v.BindEnv("tracker.owner", "ISSUEBOT_TRACKER_OWNER")
	_ = v.BindEnv("tracker.repo", "ISSUEBOT_TRACKER_REPO")
	_ = v.BindEnv("board.repo_id", "ISSUEBOT_BOARD_REPO_ID")
}

// GetPatterns returns the configured extraction patterns (default: #N, issue-N, issues/N)
func (c *Config) GetPatterns() []string {
	if len(c.Extract.Patterns) == 0 {
		return DefaultPatterns
	}
	return c.Extract.Patterns
}

// GetDatabasePath returns the configured history database path
func (c *Config) GetDatabasePath() string {
	if c.Storage.Path == "" {
		return DefaultDatabasePath
	}
	return c.Storage.Path
}

// GetExcerptLength returns the body excerpt budget
func (c *Config) GetExcerptLength() int {
	return c.Render.ExcerptLength
}

// GetColor returns the summary attachment color
func (c *Config) GetColor() string {
	if c.Render.Color == "" {
		return DefaultColor
	}
	return c.Render.Color
}

// GetUserAgent returns the outbound User-Agent header
func (c *Config) GetUserAgent() string {
	if c.HTTP.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.HTTP.UserAgent
}

// String returns a representation of the config with credentials masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Tracker: %s/%s token=%s, Board: repo=%s token=%s, Slack: app=%s bot=%s scopes=%s, Storage: %s}",
		c.Tracker.Owner, c.Tracker.Repo, Mask(c.Tracker.Token),
		c.Board.RepoID, Mask(c.Board.Token),
		Mask(c.Slack.AppToken), Mask(c.Slack.BotToken), strings.Join(c.Slack.ListenScopes, ","),
		c.Storage.Backend)
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
