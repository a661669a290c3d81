package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wbpricebot/wbwatch/internal/config"
	"github.com/wbpricebot/wbwatch/internal/cookies"
)

// NewCookiesCmd creates the cookies command group.
func NewCookiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect or refresh the Wildberries session cookies",
		Long: `Cookies manages the session cookie cache shared with the monitor.

Cookie values are never printed.`,
	}

	cmd.AddCommand(newCookiesRefreshCmd())
	cmd.AddCommand(newCookiesShowCmd())
	cmd.AddCommand(newCookiesPathCmd())

	return cmd
}

func newCookiesRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Harvest new cookies and store them in the cache",
		Long: `Refresh opens the catalogue in a headless browser (falling back to plain
HTTP) and writes the harvested cookies to COOKIES_CACHE_FILE, whether or not
the cached ones are still fresh.`,
		Args: cobra.NoArgs,
		RunE: runCookiesRefreshCmd,
	}
}

func newCookiesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cached cookie names and age",
		Args:  cobra.NoArgs,
		RunE:  runCookiesShowCmd,
	}
}

func newCookiesPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved cookie cache location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return printCookiePaths(cmd.OutOrStdout(), cfg.CookiesCacheFile)
		},
	}
}

// printCookiePaths prints the absolute cache path and the per-user XDG
// location a deployment outside the container may prefer.
func printCookiePaths(w io.Writer, cachePath string) error {
	abs, err := filepath.Abs(cachePath)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", cachePath, err)
	}
	fmt.Fprintf(w, "Cache: %s\n", abs)
	fmt.Fprintf(w, "XDG:   %s\n", filepath.Join(config.XDGCacheDir(), config.DefaultCookiesCacheFile))
	return nil
}

func runCookiesRefreshCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := setupLogger(cfg)
	defer closer.Close() //nolint:errcheck // Best effort flush on exit

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	session := newCookieManager(cfg, cfg.CookiesCacheFile, logger)
	if err := session.Update(ctx, true); err != nil {
		return fmt.Errorf("failed to refresh cookies: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Refreshed %d cookies, saved to %s\n", len(session.Cookies()), session.CachePath())
	if !session.HasToken() {
		fmt.Fprintf(out, "Warning: %s is missing, searches may be rejected\n", cookies.TokenCookie)
	}
	return nil
}

func runCookiesShowCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return showCookieCache(cmd.OutOrStdout(), cfg.CookiesCacheFile, time.Now())
}

// showCookieCache prints a summary of the cache file at path.
func showCookieCache(w io.Writer, path string, now time.Time) error {
	list, harvested, err := cookies.ReadCache(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "No cookie cache at %s\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cookie cache: %w", err)
	}

	names := make([]string, 0, len(list))
	hasToken := false
	for _, c := range list {
		names = append(names, c.Name)
		if c.Name == cookies.TokenCookie {
			hasToken = true
		}
	}
	sort.Strings(names)

	age := now.Sub(harvested).Round(time.Second)
	fmt.Fprintf(w, "Cache:     %s\n", path)
	fmt.Fprintf(w, "Harvested: %s (%s ago)\n", harvested.Format("2006-01-02 15:04:05"), age)
	if age > cookies.DefaultRefreshInterval {
		fmt.Fprintln(w, "Status:    stale, will be refreshed on next use")
	} else {
		fmt.Fprintln(w, "Status:    fresh")
	}
	fmt.Fprintf(w, "Anti-bot:  %s\n", presence(hasToken))
	fmt.Fprintf(w, "Cookies:   %d (%s)\n", len(names), strings.Join(names, ", "))
	return nil
}

func presence(b bool) string {
	if b {
		return "present"
	}
	return "missing"
}
