package am

// Config represents the issuebot configuration.
// It is loaded once at process start and injected into components; nothing
// re-reads it while messages are being handled.
type Config struct {
	Tracker  TrackerConfig  `mapstructure:"tracker" toml:"tracker"`
	Board    BoardConfig    `mapstructure:"board" toml:"board"`
	Slack    SlackConfig    `mapstructure:"slack" toml:"slack"`
	Extract  ExtractConfig  `mapstructure:"extract" toml:"extract"`
	Render   RenderConfig   `mapstructure:"render" toml:"render"`
	Dispatch DispatchConfig `mapstructure:"dispatch" toml:"dispatch"`
	Storage  StorageConfig  `mapstructure:"storage" toml:"storage"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	HTTP     HTTPConfig     `mapstructure:"http" toml:"http"`
}

// TrackerConfig configures the issue tracker source (GitHub issues API)
type TrackerConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url"` // API root, e.g. "https://api.github.com/"
	Token   string `mapstructure:"token" toml:"token"`       // Sent as a bearer token
	Owner   string `mapstructure:"owner" toml:"owner"`       // Repository owner (user or org)
	Repo    string `mapstructure:"repo" toml:"repo"`         // Repository name
}

// BoardConfig configures the workflow board source (ZenHub API)
type BoardConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url"` // API root, e.g. "https://api.zenhub.com/p1"
	Token   string `mapstructure:"token" toml:"token"`       // Sent as X-Authentication-Token
	RepoID  string `mapstructure:"repo_id" toml:"repo_id"`   // Numeric GitHub repository id
	WebURL  string `mapstructure:"web_url" toml:"web_url"`   // Workspace URL used for board links
}

// SlackConfig configures the chat platform connection
type SlackConfig struct {
	APIURL        string   `mapstructure:"api_url" toml:"api_url"`                 // Web API root (default https://slack.com/api/)
	AppToken      string   `mapstructure:"app_token" toml:"app_token"`             // xapp- token for Socket Mode
	BotToken      string   `mapstructure:"bot_token" toml:"bot_token"`             // xoxb- token for chat.postMessage
	ListenScopes  []string `mapstructure:"listen_scopes" toml:"listen_scopes"`     // Channel types to listen in: channel, group, im, mpim
	ReplyInThread bool     `mapstructure:"reply_in_thread" toml:"reply_in_thread"` // Reply in the triggering message's thread
}

// ExtractConfig configures reference extraction
type ExtractConfig struct {
	Patterns []string `mapstructure:"patterns" toml:"patterns"` // Go regexps; trailing digits are the issue id
}

// RenderConfig configures reply rendering
type RenderConfig struct {
	LinkTarget    string `mapstructure:"link_target" toml:"link_target"`       // "tracker" or "board"
	ExcerptLength int    `mapstructure:"excerpt_length" toml:"excerpt_length"` // Body excerpt budget in characters, 0 disables excerpts
	Color         string `mapstructure:"color" toml:"color"`                   // Attachment side color
}

// DispatchConfig configures how resolutions are bounded and replies are paced
type DispatchConfig struct {
	ResolveTimeoutSeconds int     `mapstructure:"resolve_timeout_seconds" toml:"resolve_timeout_seconds"` // 0 = no deadline
	RepliesPerSecond      float64 `mapstructure:"replies_per_second" toml:"replies_per_second"`           // Per channel, 0 = unlimited
	ReplyBurst            int     `mapstructure:"reply_burst" toml:"reply_burst"`
	MaxConcurrent         int     `mapstructure:"max_concurrent" toml:"max_concurrent"` // References resolved at once per message
}

// StorageConfig configures the resolution history store
type StorageConfig struct {
	Backend string `mapstructure:"backend" toml:"backend"` // "sqlite" or "none"
	Path    string `mapstructure:"path" toml:"path"`
}

// ServerConfig configures the operator HTTP endpoint
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Address string `mapstructure:"address" toml:"address"` // e.g. "127.0.0.1:8787"
}

// HTTPConfig configures the outbound HTTP client shared by both sources
type HTTPConfig struct {
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	BlockPrivateIPs bool   `mapstructure:"block_private_ips" toml:"block_private_ips"`
	UserAgent       string `mapstructure:"user_agent" toml:"user_agent"`
}

// Storage backends
const (
	StorageSQLite = "sqlite"
	StorageNone   = "none"
)

// Link targets
const (
	LinkTracker = "tracker"
	LinkBoard   = "board"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
