package cookies

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	homeURL         = "https://www.wildberries.ru/"
	tokenRetryURL   = "https://www.wildberries.ru/catalog/0/search.aspx?search=iphone"
	pageLoadTimeout = 45 * time.Second
	bodyWaitTimeout = 20 * time.Second
	challengeWait   = 10 * time.Second
)

// stealthScript hides the usual headless markers before any page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['ru-RU', 'ru', 'en-US', 'en'] });
window.chrome = { runtime: {} };
window.navigator.chrome = { runtime: {} };
`

// BrowserHarvester drives headless Chromium through the site's JavaScript
// challenge and collects the cookies it sets.
type BrowserHarvester struct {
	bin      string
	driver   string
	proxyURL string
	logger   *slog.Logger

	// pause is replaceable in tests.
	pause func(ctx context.Context, d time.Duration) error
}

// BrowserOption configures a BrowserHarvester.
type BrowserOption func(*BrowserHarvester)

// WithBrowserBinary sets an explicit Chromium path.
func WithBrowserBinary(bin string) BrowserOption {
	return func(b *BrowserHarvester) {
		b.bin = bin
	}
}

// WithDriverPath sets the chromedriver location; Chromium is looked up in
// the same directory.
func WithDriverPath(path string) BrowserOption {
	return func(b *BrowserHarvester) {
		b.driver = path
	}
}

// WithBrowserProxy routes browser traffic through proxyURL.
func WithBrowserProxy(proxyURL string) BrowserOption {
	return func(b *BrowserHarvester) {
		b.proxyURL = proxyURL
	}
}

// WithBrowserLogger sets a custom logger.
func WithBrowserLogger(logger *slog.Logger) BrowserOption {
	return func(b *BrowserHarvester) {
		b.logger = logger
	}
}

// NewBrowserHarvester creates a BrowserHarvester.
func NewBrowserHarvester(opts ...BrowserOption) *BrowserHarvester {
	b := &BrowserHarvester{
		logger: slog.Default(),
		pause:  sleep,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// resolveBinary picks the Chromium executable: the explicit binary, then a
// chromium build next to chromedriver, then whatever rod finds on the system.
func (b *BrowserHarvester) resolveBinary() (string, error) {
	if b.bin != "" {
		return b.bin, nil
	}

	if b.driver != "" {
		dir := filepath.Dir(b.driver)
		for _, name := range []string{"chromium", "chromium-browser", "google-chrome"} {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return "", ErrBrowserNotFound
}

// Harvest implements Harvester.
func (b *BrowserHarvester) Harvest(ctx context.Context) ([]Cookie, error) {
	bin, err := b.resolveBinary()
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(true).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", "1920,1080").
		Set("disable-blink-features", "AutomationControlled").
		Set("user-agent", UserAgent).
		Delete("enable-automation")
	if b.proxyURL != "" {
		l = l.Proxy(b.proxyURL)
	}
	defer l.Cleanup()

	b.logger.Info("launching headless browser", "binary", bin)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			b.logger.Debug("failed to close browser", "error", err)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		return nil, fmt.Errorf("failed to install stealth script: %w", err)
	}

	return b.walk(ctx, page)
}

// walk loads the home page, waits for the challenge and falls back to user
// interaction and the search page while x_wbaas_token is missing.
func (b *BrowserHarvester) walk(ctx context.Context, page *rod.Page) ([]Cookie, error) {
	b.logger.Info("opening marketplace home page")
	if err := page.Timeout(pageLoadTimeout).Navigate(homeURL); err != nil {
		return nil, fmt.Errorf("failed to open home page: %w", err)
	}
	if _, err := page.Timeout(bodyWaitTimeout).Element("body"); err != nil {
		return nil, fmt.Errorf("home page did not render: %w", err)
	}

	// The token appears a few seconds after load.
	if err := b.pause(ctx, challengeWait); err != nil {
		return nil, err
	}
	for _, step := range []struct {
		y    int
		wait time.Duration
	}{{500, 2 * time.Second}, {1000, 3 * time.Second}} {
		if _, err := page.Eval(fmt.Sprintf("() => window.scrollTo(0, %d)", step.y)); err != nil {
			b.logger.Debug("scroll failed", "error", err)
		}
		if err := b.pause(ctx, step.wait); err != nil {
			return nil, err
		}
	}

	list, err := pageCookies(page)
	if err != nil {
		return nil, err
	}
	b.logger.Info("cookies after first load", "names", cookieNames(list))

	if !hasCookie(list, TokenCookie) {
		b.logger.Warn("anti-bot token not found, trying user interaction")
		if err := b.hoverFirstLink(ctx, page); err != nil {
			b.logger.Warn("interaction failed", "error", err)
		} else if list, err = pageCookies(page); err != nil {
			return nil, err
		}
	}

	if !hasCookie(list, TokenCookie) {
		b.logger.Warn("still no anti-bot token, navigating to search page")
		if err := page.Timeout(pageLoadTimeout).Navigate(tokenRetryURL); err != nil {
			return nil, fmt.Errorf("failed to open search page: %w", err)
		}
		if err := b.pause(ctx, 8*time.Second); err != nil {
			return nil, err
		}
		if list, err = pageCookies(page); err != nil {
			return nil, err
		}
	}

	present := make([]string, 0, 2)
	for _, name := range []string{UIDCookie, TokenCookie} {
		if hasCookie(list, name) {
			present = append(present, name)
		}
	}
	b.logger.Info("browser harvest finished", "count", len(list), "critical_present", present)

	return list, nil
}

func (b *BrowserHarvester) hoverFirstLink(ctx context.Context, page *rod.Page) error {
	link, err := page.Timeout(5 * time.Second).Element("a")
	if err != nil {
		return err
	}
	link = link.CancelTimeout()
	if err := link.ScrollIntoView(); err != nil {
		return err
	}
	if err := b.pause(ctx, time.Second); err != nil {
		return err
	}
	if err := link.Hover(); err != nil {
		return err
	}
	return b.pause(ctx, 3*time.Second)
}

func pageCookies(page *rod.Page) ([]Cookie, error) {
	raw, err := page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return fromNetworkCookies(raw), nil
}

// fromNetworkCookies converts CDP cookies to the cache representation.
func fromNetworkCookies(raw []*proto.NetworkCookie) []Cookie {
	list := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		list = append(list, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expiry:   int64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return list
}
