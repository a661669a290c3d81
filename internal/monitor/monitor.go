package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wbpricebot/wbwatch/internal/config"
	"github.com/wbpricebot/wbwatch/internal/metrics"
	"github.com/wbpricebot/wbwatch/internal/model"
)

const (
	signalWait   = time.Second
	passPause    = 5 * time.Second
	failurePause = time.Minute

	// SendSpacing is the minimum gap between two channel messages.
	SendSpacing = 1100 * time.Millisecond
)

// ErrNilDependency is returned by New when a required dependency is missing.
var ErrNilDependency = errors.New("monitor dependency is nil")

// Searcher runs a filtered catalogue search.
type Searcher interface {
	Search(ctx context.Context, query string, keywords, exclusions []string) ([]model.RawProduct, error)
}

// SearcherFactory creates a search client. It is called on start and after
// every restart request.
type SearcherFactory func() (Searcher, error)

// Store is the part of the database the monitor needs.
type Store interface {
	GetGlobalProducts(ctx context.Context) ([]*model.GlobalProduct, error)
	GetSetting(ctx context.Context, key, def string) (string, error)
	GetSentNotification(ctx context.Context, url string) (*model.ChannelNotification, error)
	UpsertSentNotification(ctx context.Context, url string, price float64, productName, channelID string) error
	CleanupOldNotifications(ctx context.Context, days int) (int64, error)
}

// Sender delivers a Markdown message to a Telegram chat.
type Sender interface {
	SendMarkdown(ctx context.Context, chatID, text string) error
}

// Monitor periodically searches every watched product and announces offers
// inside their price windows.
type Monitor struct {
	newSearcher SearcherFactory
	store       Store
	sender      Sender

	workers         int
	minDelay        time.Duration
	maxDelay        time.Duration
	parseLimit      int
	cleanupDays     int
	cleanupSchedule string

	logger *slog.Logger

	trigger        chan struct{}
	restart        chan struct{}
	restartPending atomic.Bool

	// sendMu serializes the check, send and record of notifications.
	sendMu   sync.Mutex
	lastSend time.Time

	signalWait time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	rand       func() float64
	now        func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithWorkers sets the number of concurrent searches. Non-positive values
// are ignored.
func WithWorkers(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithDelays sets the bounds of the random pause before each search.
func WithDelays(minDelay, maxDelay time.Duration) Option {
	return func(m *Monitor) {
		m.minDelay = minDelay
		m.maxDelay = maxDelay
	}
}

// WithParseLimit caps the number of names searched per pass.
func WithParseLimit(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.parseLimit = n
		}
	}
}

// WithCleanup sets the retention of notification records and the cron
// schedule of the cleanup job. An empty schedule disables the job.
func WithCleanup(days int, schedule string) Option {
	return func(m *Monitor) {
		m.cleanupDays = days
		m.cleanupSchedule = schedule
	}
}

// WithConfig applies the monitor related fields of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(m *Monitor) {
		WithWorkers(cfg.Workers)(m)
		WithDelays(cfg.MinDelay, cfg.MaxDelay)(m)
		WithParseLimit(cfg.ParseLimit)(m)
		WithCleanup(cfg.CleanupDays, cfg.CleanupSchedule)(m)
	}
}

// New creates a Monitor. Defaults follow config.NewConfig.
func New(newSearcher SearcherFactory, store Store, sender Sender, opts ...Option) (*Monitor, error) {
	if newSearcher == nil || store == nil || sender == nil {
		return nil, ErrNilDependency
	}

	m := &Monitor{
		newSearcher:     newSearcher,
		store:           store,
		sender:          sender,
		workers:         config.DefaultWorkers,
		minDelay:        config.DefaultMinDelay,
		maxDelay:        config.DefaultMaxDelay,
		parseLimit:      config.DefaultParseLimit,
		cleanupDays:     config.DefaultCleanupDays,
		cleanupSchedule: config.DefaultCleanupSchedule,
		trigger:         make(chan struct{}, 1),
		restart:         make(chan struct{}, 1),
		signalWait:      signalWait,
		sleep:           sleep,
		rand:            rand.Float64,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	return m, nil
}

// Trigger asks for a pass to start without waiting. It never blocks.
func (m *Monitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Restart aborts the running pass and recreates the search client before
// the next one. It never blocks.
func (m *Monitor) Restart() {
	m.restartPending.Store(true)
	select {
	case m.restart <- struct{}{}:
	default:
	}
}

// Run monitors until ctx is cancelled. It returns nil on cancellation and
// an error only when the search client cannot be created.
func (m *Monitor) Run(ctx context.Context) error {
	searcher, err := m.newSearcher()
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}

	if m.cleanupSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(m.cleanupSchedule, func() { m.runCleanup(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule cleanup %q: %w", m.cleanupSchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	m.logger.Info("monitor started",
		"workers", m.workers,
		"parse_limit", m.parseLimit,
	)

	for ctx.Err() == nil {
		if m.wait(ctx, m.restart) {
			m.restartPending.Store(false)
			s, err := m.newSearcher()
			if err != nil {
				m.logger.Error("failed to recreate search client", "error", err)
			} else {
				searcher = s
				m.logger.Info("search client recreated")
			}
			continue
		}
		m.wait(ctx, m.trigger)

		if err := m.RunPass(ctx, searcher); err != nil {
			if ctx.Err() != nil {
				break
			}
			m.logger.Error("pass failed", "error", err)
			_ = m.sleep(ctx, failurePause)
			continue
		}
		_ = m.sleep(ctx, passPause)
	}

	m.logger.Info("monitor stopped")
	return nil
}

// RunPass searches every product group once and sends notifications.
func (m *Monitor) RunPass(ctx context.Context, s Searcher) error {
	start := m.now()
	defer func() {
		metrics.PassDuration.Observe(m.now().Sub(start).Seconds())
	}()

	products, err := m.store.GetGlobalProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	groups := GroupProducts(products, m.parseLimit)
	if len(groups) == 0 {
		m.logger.Debug("no products to monitor")
		return nil
	}

	return m.searchGroups(ctx, s, groups, m.handleResults)
}

// Cleanup deletes notification records older than the retention period.
func (m *Monitor) Cleanup(ctx context.Context) (int64, error) {
	n, err := m.store.CleanupOldNotifications(ctx, m.cleanupDays)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up notifications: %w", err)
	}
	metrics.CleanedNotifications.Add(float64(n))
	return n, nil
}

func (m *Monitor) runCleanup(ctx context.Context) {
	n, err := m.Cleanup(ctx)
	if err != nil {
		m.logger.Error("cleanup failed", "error", err)
		return
	}
	m.logger.Info("old notifications removed", "count", n, "days", m.cleanupDays)
}

// wait reports whether ch fired within m.signalWait.
func (m *Monitor) wait(ctx context.Context, ch <-chan struct{}) bool {
	t := time.NewTimer(m.signalWait)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
