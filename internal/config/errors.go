package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.RequireBotToken()
// so callers can use errors.Is() to react to a specific problem.
var (
	// ErrNoBotToken is returned when BOT_TOKEN is not set.
	ErrNoBotToken = errors.New("BOT_TOKEN is not set")

	// ErrInvalidWorkers is returned when PARSER_WORKERS is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidDelay is returned when MIN_DELAY or MAX_DELAY is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrDelayRange is returned when MIN_DELAY is greater than MAX_DELAY.
	ErrDelayRange = errors.New("invalid delay range: MIN_DELAY must not exceed MAX_DELAY")

	// ErrInvalidCleanupDays is returned when PRODUCT_CLEANUP_DAYS is negative.
	ErrInvalidCleanupDays = errors.New("invalid cleanup days: must be non-negative")

	// ErrInvalidParseLimit is returned when PARSE_LIMIT is not positive.
	ErrInvalidParseLimit = errors.New("invalid parse limit: must be positive")

	// ErrInvalidLogFormat is returned when LOG_FORMAT is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrNoDatabaseURL is returned when DATABASE_URL resolves to an empty string.
	ErrNoDatabaseURL = errors.New("DATABASE_URL is empty")
)
