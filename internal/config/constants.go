package config

const (
	// SFTP Defaults
	DefaultSFTPPort                     = 22
	DefaultSFTPKeepaliveSeconds         = 5
	DefaultSFTPIdleTimeoutSeconds       = 300
	DefaultSFTPConnectAttempts          = 5
	DefaultSFTPConnectRetryDelaySeconds = 5
	DefaultSFTPDialTimeoutSeconds       = 15

	// Registry Defaults
	DefaultRegistryTimeoutSeconds = 15
	DefaultRegistryUserAgent      = "imgsync/1.0"

	// Discord Defaults
	DefaultDiscordAuthor      = "Shortcode Notifier"
	DefaultDiscordEmbedTitle  = "Shortcode Update"
	DefaultDiscordEmbedColor  = "03b2f8"
	DefaultDiscordIDsFile     = "webhook_ids.json"
	DefaultDiscordRateLimit   = 5
	DefaultDiscordRatePeriodS = 2
	DefaultDiscordMaxRetries  = 3

	// Watch Defaults
	DefaultWatchDebounceMs   = 500
	DefaultWatchMoveWindowMs = 250

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = "debug.log"
	DefaultMaxLogSizeMB  = 5
	DefaultMaxLogBackups = 1

	// History Defaults
	DefaultHistoryDBPath = "imgsync_history.db"

	// Status Defaults
	DefaultStatusListen = "127.0.0.1:9464"

	// ConfigPathEnv overrides config file discovery
	ConfigPathEnv = "IMGSYNC_CONFIG_PATH"
)

// DefaultWatchPatterns are the image types mirrored when no patterns are configured.
var DefaultWatchPatterns = []string{
	"*.webp", "*.jpg", "*.jpeg", "*.png", "*.apng", "*.gif", "*.svg",
	"*.bmp", "*.ico", "*.tiff", "*.pdf", "*.jpg2", "*.jxr",
}
