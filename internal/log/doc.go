// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - LOG_LEVEL parsing and an optional rotated log file
//
// # Security Features
//
// The SecureHandler masks:
//   - HTTP headers (Authorization, Proxy-Authorization, Cookie, Set-Cookie)
//   - Wildberries anti-bot cookies (x_wbaas_token, _wbauid)
//   - Telegram bot tokens, detected by pattern as well as by key
//   - Whole Cookie header values ("a=1; b=2") whatever the key
//   - Bot tokens inside Telegram URLs and proxy passwords inside proxy URLs,
//     in messages, string attributes and error values alike
//
// # Usage
//
//	logger, closer := log.NewLogger(os.Stderr, log.Options{Level: "INFO", File: "/var/log/wbwatch.log"})
//	defer closer.Close()
//	slog.SetDefault(logger)
//
//	logger.Info("cookies refreshed",
//	    "cookie", "x_wbaas_token=abc",  // masked
//	    "method", "browser",
//	)
package log
