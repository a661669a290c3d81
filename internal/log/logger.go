package log

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures NewLogger.
type Options struct {
	// Level is one of DEBUG, INFO, WARNING (WARN), ERROR (CRITICAL).
	// Unknown values mean INFO.
	Level string

	// JSON selects slog's JSON handler instead of the text handler.
	JSON bool

	// File, when set, receives a copy of every record. The file is rotated
	// at 10 MB and three compressed backups are kept.
	File string

	// Verbose forces the debug level.
	Verbose bool
}

// ParseLevel maps a LOG_LEVEL value to an slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL", "FATAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new slog.Logger with secure handling writing to w
// (and to the rotated file in opts.File).
//
// The returned io.Closer closes the rotated file; it is a no-op when no file
// is configured.
func NewLogger(w io.Writer, opts Options) (*slog.Logger, io.Closer) {
	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		}
		w = io.MultiWriter(w, rotator)
		closer = rotator
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(NewSecureHandler(handler)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
