package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Delays and worker counts mirror the pacing Wildberries tolerates from a
// single client without answering with 429.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wbwatch"

	// DefaultDatabaseURL points at a SQLite file in the working directory.
	DefaultDatabaseURL = "sqlite://./parser.db"

	// DefaultWorkers is the number of concurrent catalogue searches.
	DefaultWorkers = 3

	// DefaultMinDelay is the lower bound of the random pause before each search.
	DefaultMinDelay = 5 * time.Second

	// DefaultMaxDelay is the upper bound of the random pause before each search.
	DefaultMaxDelay = 8 * time.Second

	// DefaultCleanupDays is how long a channel notification record is kept.
	// Once the record is gone the same offer may be announced again.
	DefaultCleanupDays = 14

	// DefaultCleanupSchedule is the cron spec of the notification cleanup job.
	DefaultCleanupSchedule = "@daily"

	// DefaultSearchURL is the internal Wildberries exact-match search endpoint.
	DefaultSearchURL = "https://www.wildberries.ru/__internal/u-search/exactmatch/ru/common/v18/search"

	// DefaultChromeDriverPath is where the container image installs chromedriver.
	// The browser binary is looked up next to it.
	DefaultChromeDriverPath = "/usr/bin/chromedriver"

	// DefaultCookiesCacheFile is the cookie cache file name relative to the
	// working directory. The container image overrides it with an absolute path.
	DefaultCookiesCacheFile = "cookies_cache.json"

	// DefaultLogLevel is the log level used when LOG_LEVEL is unset.
	DefaultLogLevel = "INFO"

	// DefaultLogFormat selects slog's text handler.
	DefaultLogFormat = "text"

	// DefaultParseLimit caps the number of distinct product names searched per pass.
	DefaultParseLimit = 200

	// DefaultFiltersFile is the keyword filter file name searched for when
	// FILTERS_FILE is not set.
	DefaultFiltersFile = "wbwatch.yaml"
)

// Config holds all runtime options of the bot and the monitor.
// It is populated from the environment by Load and passed to every
// component explicitly; nothing reads the environment after start-up.
type Config struct {
	// BotToken is the Telegram bot API token. Required to run the bot.
	BotToken string

	// AdminIDs are Telegram user ids that become administrators (with access)
	// the first time they talk to the bot.
	AdminIDs []int64

	// DatabaseURL selects the storage backend.
	// sqlite://, sqlite+aiosqlite:///, file paths and postgres:// are accepted.
	DatabaseURL string

	// Workers is the number of concurrent catalogue searches per pass.
	Workers int

	// MinDelay and MaxDelay bound the random pause taken before each search.
	MinDelay time.Duration
	MaxDelay time.Duration

	// CleanupDays is the retention of channel notification records.
	CleanupDays int

	// CleanupSchedule is a robfig/cron spec for the cleanup job.
	CleanupSchedule string

	// SearchURL is the Wildberries search endpoint.
	SearchURL string

	// ChromeDriverPath is the chromedriver location. Only its directory is
	// used, to find a browser binary installed alongside it.
	ChromeDriverPath string

	// ChromeBin is an explicit browser binary. It wins over ChromeDriverPath.
	ChromeBin string

	// CookiesCacheFile is the JSON file that persists harvested cookies.
	CookiesCacheFile string

	// LogLevel is one of DEBUG, INFO, WARNING, ERROR.
	LogLevel string

	// LogFormat is "text" or "json".
	LogFormat string

	// LogFile, when set, receives a rotated copy of the log output.
	LogFile string

	// MetricsAddr, when set, serves Prometheus metrics on /metrics.
	MetricsAddr string

	// ProxyURL routes Wildberries traffic through an http:// or socks5:// proxy.
	ProxyURL string

	// FiltersFile is the YAML file with extra keyword filter mappings.
	FiltersFile string

	// Filters holds the parsed filter file. Nil when no file was found.
	Filters *FilterFile

	// ParseLimit caps distinct product names searched per pass.
	ParseLimit int

	// Verbose forces debug logging regardless of LogLevel.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		DatabaseURL:      DefaultDatabaseURL,
		Workers:          DefaultWorkers,
		MinDelay:         DefaultMinDelay,
		MaxDelay:         DefaultMaxDelay,
		CleanupDays:      DefaultCleanupDays,
		CleanupSchedule:  DefaultCleanupSchedule,
		SearchURL:        DefaultSearchURL,
		ChromeDriverPath: DefaultChromeDriverPath,
		CookiesCacheFile: DefaultCookiesCacheFile,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		ParseLimit:       DefaultParseLimit,
	}
}

// IsAdmin reports whether id is listed in AdminIDs.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// XDGConfigDir returns the XDG config directory for wbwatch.
// On Linux: ~/.config/wbwatch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for wbwatch.
// On Linux: ~/.cache/wbwatch
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
// The bot token is not checked here; see RequireBotToken.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return ErrInvalidDelay
	}

	if c.MinDelay > c.MaxDelay {
		return ErrDelayRange
	}

	if c.CleanupDays < 0 {
		return ErrInvalidCleanupDays
	}

	if c.ParseLimit <= 0 {
		return ErrInvalidParseLimit
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	if c.DatabaseURL == "" {
		return ErrNoDatabaseURL
	}

	return nil
}

// RequireBotToken returns ErrNoBotToken when the Telegram token is missing.
// Only commands that talk to Telegram call it.
func (c *Config) RequireBotToken() error {
	if c.BotToken == "" {
		return ErrNoBotToken
	}
	return nil
}
