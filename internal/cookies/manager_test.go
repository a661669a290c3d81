package cookies

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleCookies = []Cookie{
	{Name: UIDCookie, Value: "uid-1", Domain: ".wildberries.ru", Path: "/"},
	{Name: TokenCookie, Value: "tok-1", Domain: ".wildberries.ru", Path: "/"},
}

func TestNewManagerDeviceID(t *testing.T) {
	t.Parallel()

	m := NewManager("", WithLogger(discardLogger()))
	id := m.DeviceID()
	if !strings.HasPrefix(id, "site_") {
		t.Fatalf("device id %q has no site_ prefix", id)
	}
	if got := len(strings.TrimPrefix(id, "site_")); got != 32 {
		t.Errorf("expected 32 hex digits, got %d", got)
	}
	if !m.ShouldUpdate() {
		t.Error("a manager without cookies should need an update")
	}
}

func TestLoadCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		cookies   []Cookie
		harvested time.Time
		wantLoad  bool
	}{
		{name: "fresh with token", cookies: sampleCookies, harvested: now.Add(-10 * time.Minute), wantLoad: true},
		{name: "expired", cookies: sampleCookies, harvested: now.Add(-31 * time.Minute)},
		{name: "missing token", cookies: sampleCookies[:1], harvested: now.Add(-time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "cookies.json")
			if err := writeCache(path, tt.cookies, tt.harvested); err != nil {
				t.Fatal(err)
			}

			m := NewManager(path, WithLogger(discardLogger()), WithClock(func() time.Time { return now }))
			got := m.Cookies()
			if tt.wantLoad {
				if diff := cmp.Diff(tt.cookies, got); diff != "" {
					t.Errorf("cookies mismatch (-want +got):\n%s", diff)
				}
				if m.ShouldUpdate() {
					t.Error("fresh cache should not need an update")
				}
				return
			}
			if len(got) != 0 {
				t.Errorf("expected cache to be discarded, got %d cookies", len(got))
			}
		})
	}
}

func TestLoadCacheCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path, WithLogger(discardLogger()))
	if len(m.Cookies()) != 0 {
		t.Error("corrupt cache should yield no cookies")
	}
}

func TestUpdateBrowserSuccess(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	var fallbackCalls atomic.Int32

	m := NewManager(path,
		WithLogger(discardLogger()),
		WithBrowser(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			return sampleCookies, nil
		})),
		WithFallback(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			fallbackCalls.Add(1)
			return nil, nil
		})),
	)

	if err := m.Update(context.Background(), false); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if fallbackCalls.Load() != 0 {
		t.Error("fallback should not run after a browser success")
	}
	if !m.HasToken() {
		t.Error("expected token after update")
	}

	list, _, err := ReadCache(path)
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if diff := cmp.Diff(sampleCookies, list); diff != "" {
		t.Errorf("cached cookies mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateFallsBack(t *testing.T) {
	t.Parallel()

	fallbackList := []Cookie{{Name: UIDCookie, Value: "u", Domain: ".wildberries.ru", Path: "/"}}

	tests := []struct {
		name    string
		browser Harvester
	}{
		{
			name: "browser error",
			browser: HarvesterFunc(func(context.Context) ([]Cookie, error) {
				return nil, ErrBrowserNotFound
			}),
		},
		{
			name: "too few cookies",
			browser: HarvesterFunc(func(context.Context) ([]Cookie, error) {
				return sampleCookies[:1], nil
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewManager("",
				WithLogger(discardLogger()),
				WithBrowser(tt.browser),
				WithFallback(HarvesterFunc(func(context.Context) ([]Cookie, error) {
					return fallbackList, nil
				})),
			)
			if err := m.Update(context.Background(), true); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if diff := cmp.Diff(fallbackList, m.Cookies()); diff != "" {
				t.Errorf("cookies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateBothFail(t *testing.T) {
	t.Parallel()

	m := NewManager("",
		WithLogger(discardLogger()),
		WithBrowser(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			return nil, errors.New("boom")
		})),
		WithFallback(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			return nil, nil
		})),
	)

	if err := m.Update(context.Background(), true); !errors.Is(err, ErrNoCookies) {
		t.Errorf("expected ErrNoCookies, got %v", err)
	}
}

func TestUpdateSkipsWhenFresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := NewManager("",
		WithLogger(discardLogger()),
		WithBrowser(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			calls.Add(1)
			return sampleCookies, nil
		})),
	)

	ctx := context.Background()
	if err := m.Update(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 harvest, got %d", got)
	}

	if err := m.Update(ctx, true); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("forced update should harvest again, got %d harvests", got)
	}
}

func TestUpdateConcurrentCallersShareRefresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	m := NewManager("",
		WithLogger(discardLogger()),
		WithBrowser(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			calls.Add(1)
			<-release
			return sampleCookies, nil
		})),
	)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Update(context.Background(), true)
		}()
	}

	// Let every caller reach the singleflight group before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Update() error = %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single harvest, got %d", got)
	}
}

func TestUpdateContextCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	m := NewManager("",
		WithLogger(discardLogger()),
		WithBrowser(HarvesterFunc(func(context.Context) ([]Cookie, error) {
			<-release
			return sampleCookies, nil
		})),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := m.Update(ctx, true); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
