package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wbpricebot/wbwatch/internal/config"
	"github.com/wbpricebot/wbwatch/internal/cookies"
	wblog "github.com/wbpricebot/wbwatch/internal/log"
	"github.com/wbpricebot/wbwatch/internal/wildberries"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig reads the environment and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the structured logger described by cfg and makes it
// the default. The closer flushes the rotated log file.
func setupLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	logger, closer := wblog.NewLogger(os.Stderr, wblog.Options{
		Level:   cfg.LogLevel,
		JSON:    cfg.LogFormat == "json",
		File:    cfg.LogFile,
		Verbose: cfg.Verbose,
	})
	slog.SetDefault(logger)
	return logger, closer
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newCookieManager creates a session manager that harvests with the browser
// and falls back to plain HTTP. An empty cachePath disables the cache file.
func newCookieManager(cfg *config.Config, cachePath string, logger *slog.Logger) *cookies.Manager {
	browser := cookies.NewBrowserHarvester(
		cookies.WithBrowserBinary(cfg.ChromeBin),
		cookies.WithDriverPath(cfg.ChromeDriverPath),
		cookies.WithBrowserProxy(cfg.ProxyURL),
		cookies.WithBrowserLogger(logger),
	)
	fallback := cookies.NewHTTPHarvester(
		cookies.WithHTTPProxy(cfg.ProxyURL),
		cookies.WithHTTPLogger(logger),
	)
	return cookies.NewManager(cachePath,
		cookies.WithLogger(logger),
		cookies.WithBrowser(browser),
		cookies.WithFallback(fallback),
	)
}

// newSearchClient creates a catalogue client using src for the session.
func newSearchClient(cfg *config.Config, src wildberries.CookieSource, logger *slog.Logger) (*wildberries.Client, error) {
	return wildberries.NewClient(src,
		wildberries.WithBaseURL(cfg.SearchURL),
		wildberries.WithProxy(cfg.ProxyURL),
		wildberries.WithFilters(wildberries.DefaultFilters().Merge(cfg.Filters)),
		wildberries.WithLogger(logger),
	)
}

// openOutput returns path opened for writing, creating parent directories,
// or stdout when path is empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
