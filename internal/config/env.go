package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads .env from the working directory (when present) and builds a
// Config from the process environment. Variables already set in the
// environment take precedence over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := FromEnv(os.LookupEnv)

	path := FindFiltersFile(cfg.FiltersFile)
	if path != "" {
		ff, err := LoadFiltersFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Filters = ff
	}

	return cfg, nil
}

// FromEnv builds a Config from the given lookup function.
// Malformed numeric values are logged and replaced by their defaults.
func FromEnv(lookup LookupFunc) *Config {
	cfg := NewConfig()

	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	cfg.BotToken = get("BOT_TOKEN")
	cfg.AdminIDs = parseIDList(get("ADMIN_TELEGRAM_ID"))

	if v := get("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	cfg.Workers = intOr(get("PARSER_WORKERS"), "PARSER_WORKERS", cfg.Workers)
	cfg.MinDelay = secondsOr(get("MIN_DELAY"), "MIN_DELAY", cfg.MinDelay)
	cfg.MaxDelay = secondsOr(get("MAX_DELAY"), "MAX_DELAY", cfg.MaxDelay)
	cfg.CleanupDays = intOr(get("PRODUCT_CLEANUP_DAYS"), "PRODUCT_CLEANUP_DAYS", cfg.CleanupDays)
	cfg.ParseLimit = intOr(get("PARSE_LIMIT"), "PARSE_LIMIT", cfg.ParseLimit)

	if v := get("CLEANUP_SCHEDULE"); v != "" {
		cfg.CleanupSchedule = v
	}
	if v := get("WB_BASE_URL"); v != "" {
		cfg.SearchURL = v
	}
	if v := get("CHROME_DRIVER_PATH"); v != "" {
		cfg.ChromeDriverPath = v
	}
	cfg.ChromeBin = get("CHROME_BIN")
	if v := get("COOKIES_CACHE_FILE"); v != "" {
		cfg.CookiesCacheFile = v
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToUpper(v)
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	cfg.LogFile = get("LOG_FILE")
	cfg.MetricsAddr = get("METRICS_ADDR")
	cfg.ProxyURL = get("HTTP_PROXY_URL")
	cfg.FiltersFile = get("FILTERS_FILE")

	return cfg
}

// parseIDList parses a comma separated list of Telegram ids.
// Entries that are not integers are skipped.
func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("ignoring malformed admin id", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func intOr(s, key string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", s, "default", def)
		return def
	}
	return n
}

// secondsOr parses a number of seconds. Fractions are allowed ("1.5").
func secondsOr(s, key string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", s, "default", def)
		return def
	}
	return time.Duration(f * float64(time.Second))
}
