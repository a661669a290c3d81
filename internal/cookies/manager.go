package cookies

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wbpricebot/wbwatch/internal/metrics"
)

// DefaultRefreshInterval is how long harvested cookies are trusted.
// x_wbaas_token expires quickly, so this stays short.
const DefaultRefreshInterval = 30 * time.Minute

// minBrowserCookies is the smallest browser harvest accepted as successful.
const minBrowserCookies = 2

// Harvester obtains a fresh set of Wildberries cookies.
type Harvester interface {
	Harvest(ctx context.Context) ([]Cookie, error)
}

// HarvesterFunc adapts a function to Harvester.
type HarvesterFunc func(ctx context.Context) ([]Cookie, error)

// Harvest calls f.
func (f HarvesterFunc) Harvest(ctx context.Context) ([]Cookie, error) {
	return f(ctx)
}

// Manager owns the Wildberries session: cookies, device id and the request
// headers built from them. It is safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	cookies    []Cookie
	lastUpdate time.Time

	deviceID  string
	cachePath string
	interval  time.Duration

	browser  Harvester
	fallback Harvester

	// refresh collapses concurrent Update calls into one harvest.
	refresh singleflight.Group

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithBrowser sets the primary harvester.
func WithBrowser(h Harvester) Option {
	return func(m *Manager) {
		m.browser = h
	}
}

// WithFallback sets the harvester used when the browser fails.
func WithFallback(h Harvester) Option {
	return func(m *Manager) {
		m.fallback = h
	}
}

// WithRefreshInterval overrides DefaultRefreshInterval.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager backed by the cache file at cachePath and
// loads the cache. Cached cookies are used only when younger than the
// refresh interval and when they include x_wbaas_token.
func NewManager(cachePath string, opts ...Option) *Manager {
	m := &Manager{
		deviceID:  "site_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		cachePath: cachePath,
		interval:  DefaultRefreshInterval,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	m.loadCache()
	return m
}

// DeviceID returns the random device id sent with every request.
func (m *Manager) DeviceID() string {
	return m.deviceID
}

// CachePath returns the cookie cache file location.
func (m *Manager) CachePath() string {
	return m.cachePath
}

// Cookies returns a copy of the current cookies.
func (m *Manager) Cookies() []Cookie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Cookie(nil), m.cookies...)
}

// LastUpdate returns when the current cookies were harvested.
func (m *Manager) LastUpdate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUpdate
}

// ShouldUpdate reports whether the cookies are older than the refresh interval.
func (m *Manager) ShouldUpdate() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now().Sub(m.lastUpdate) > m.interval
}

// HasToken reports whether the current cookies include x_wbaas_token.
func (m *Manager) HasToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return hasCookie(m.cookies, TokenCookie)
}

func (m *Manager) loadCache() {
	if m.cachePath == "" {
		return
	}

	list, harvested, err := ReadCache(m.cachePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("could not load cookie cache", "path", m.cachePath, "error", err)
		}
		return
	}

	age := m.now().Sub(harvested)
	if age >= m.interval {
		m.logger.Info("cookie cache expired", "age", age.Round(time.Second))
		return
	}

	if !hasCookie(list, TokenCookie) {
		m.logger.Warn("cached cookies miss the anti-bot token, will refresh")
		return
	}

	m.mu.Lock()
	m.cookies = list
	m.lastUpdate = harvested
	m.mu.Unlock()

	m.logger.Info("cookies loaded from cache",
		"age", age.Round(time.Second),
		"count", len(list),
	)
}

// Update refreshes the cookies.
//
// Without force, fresh cookies are kept as they are. Concurrent callers
// share one in-flight refresh and all receive its result. The browser is
// tried first; when it fails or yields fewer than two cookies the HTTP
// fallback runs. Successful results are written to the cache file.
func (m *Manager) Update(ctx context.Context, force bool) error {
	if !force {
		m.mu.RLock()
		fresh := len(m.cookies) > 0 && m.now().Sub(m.lastUpdate) <= m.interval
		m.mu.RUnlock()
		if fresh {
			m.logger.Debug("cookies are fresh, using cached version")
			return nil
		}
	}

	ch := m.refresh.DoChan("refresh", func() (any, error) {
		// The harvest outlives a single caller's cancellation so that other
		// waiters still get a result.
		return nil, m.harvest(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.logger.Debug("joined an in-flight cookie refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) harvest(ctx context.Context) error {
	if m.browser != nil {
		m.logger.Info("fetching fresh cookies via browser")
		list, err := m.browser.Harvest(ctx)
		if err == nil && len(list) < minBrowserCookies {
			err = ErrTooFewCookies
		}
		if err == nil {
			metrics.CookieRefreshes.WithLabelValues("browser", "ok").Inc()
			m.store(list)
			m.logger.Info("cookies updated via browser",
				"count", len(list),
				"has_anti_bot", hasCookie(list, TokenCookie),
			)
			return nil
		}
		metrics.CookieRefreshes.WithLabelValues("browser", "failed").Inc()
		m.logger.Warn("browser cookie harvest failed, trying http fallback", "error", err)
	}

	if m.fallback != nil {
		list, err := m.fallback.Harvest(ctx)
		if err == nil && len(list) > 0 {
			metrics.CookieRefreshes.WithLabelValues("http", "ok").Inc()
			m.store(list)
			m.logger.Info("cookies updated via http fallback", "count", len(list), "names", cookieNames(list))
			return nil
		}
		metrics.CookieRefreshes.WithLabelValues("http", "failed").Inc()
		if err != nil {
			m.logger.Warn("http cookie fallback failed", "error", err)
		}
	}

	m.logger.Error("failed to update cookies via both methods")
	return ErrNoCookies
}

// store installs list as the current cookies and persists it.
func (m *Manager) store(list []Cookie) {
	now := m.now()

	m.mu.Lock()
	m.cookies = list
	m.lastUpdate = now
	m.mu.Unlock()

	if m.cachePath == "" {
		return
	}
	if err := writeCache(m.cachePath, list, now); err != nil {
		m.logger.Warn("could not save cookie cache", "path", m.cachePath, "error", err)
		return
	}
	m.logger.Debug("cookies saved to cache", "path", m.cachePath, "count", len(list))
}
