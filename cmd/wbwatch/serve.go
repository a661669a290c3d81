package main

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wbpricebot/wbwatch/internal/bot"
	"github.com/wbpricebot/wbwatch/internal/config"
	"github.com/wbpricebot/wbwatch/internal/cookies"
	"github.com/wbpricebot/wbwatch/internal/database"
	"github.com/wbpricebot/wbwatch/internal/metrics"
	"github.com/wbpricebot/wbwatch/internal/monitor"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the price monitor",
		Long: `Serve starts the Telegram bot and the background price monitor.

Environment:
  BOT_TOKEN            Telegram bot token (required)
  ADMIN_TELEGRAM_ID    Comma separated admin Telegram ids
  DATABASE_URL         sqlite:///path/to/file.db or postgres://... (default sqlite://./parser.db)
  PARSER_WORKERS       Concurrent catalogue searches (default 3)
  MIN_DELAY, MAX_DELAY Random pause before each search in seconds (default 5 and 8)
  PRODUCT_CLEANUP_DAYS Retention of sent notification records (default 14)
  COOKIES_CACHE_FILE   Cookie cache location (default cookies_cache.json)
  CHROME_DRIVER_PATH   chromedriver location, used to find the browser
  CHROME_BIN           Browser binary, overrides CHROME_DRIVER_PATH
  HTTP_PROXY_URL       http:// or socks5:// proxy for Wildberries traffic
  METRICS_ADDR         Address of the Prometheus /metrics endpoint
  LOG_LEVEL, LOG_FORMAT, LOG_FILE

Examples:
  # Run with settings from .env
  wbwatch serve

  # Same, with debug logging
  wbwatch -v`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireBotToken(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer := setupLogger(cfg)
	defer closer.Close() //nolint:errcheck // Best effort flush on exit

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return serve(ctx, cfg, logger)
}

// serve wires the store, the bot and the monitor and runs them until ctx
// is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := database.Open(ctx, cfg.DatabaseURL, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close() //nolint:errcheck // Closed on shutdown

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn)); err != nil {
		logger.Warn("failed to redirect Telegram client logs", "error", err)
	}
	logger.Info("authorized on Telegram", "account", api.Self.UserName)

	session := newCookieManager(cfg, cfg.CookiesCacheFile, logger)
	if err := session.Update(ctx, false); err != nil {
		logger.Warn("initial cookie refresh failed, searches will retry", "error", err)
	}

	b, err := bot.New(api, store,
		bot.WithLogger(logger),
		bot.WithAdminIDs(cfg.AdminIDs),
		bot.WithSearcherFactory(exportSearcherFactory(cfg, logger)),
	)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	mon, err := monitor.New(monitorSearcherFactory(cfg, session, logger), store, b,
		monitor.WithLogger(logger),
		monitor.WithConfig(cfg),
	)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	b.SetController(mon)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error { return mon.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.MetricsAddr) })
	}

	logger.Info("wbwatch started",
		"admins", len(cfg.AdminIDs),
		"workers", cfg.Workers,
		"dialect", store.Dialect().String(),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("wbwatch stopped")
	return nil
}

// monitorSearcherFactory builds monitor clients on the shared session.
func monitorSearcherFactory(cfg *config.Config, session *cookies.Manager, logger *slog.Logger) monitor.SearcherFactory {
	return func() (monitor.Searcher, error) {
		client, err := newSearchClient(cfg, session, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// exportSearcherFactory builds export clients with a session of their own.
// Export sessions keep no cache file, so they never race the monitor's.
func exportSearcherFactory(cfg *config.Config, logger *slog.Logger) bot.SearcherFactory {
	return func(ctx context.Context) (bot.Searcher, error) {
		session := newCookieManager(cfg, "", logger)
		if err := session.Update(ctx, true); err != nil {
			logger.Warn("export cookie refresh failed", "error", err)
		}
		client, err := newSearchClient(cfg, session, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
