package cookies

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wbpricebot/wbwatch/internal/transport"
)

const (
	defaultSiteURL = "https://www.wildberries.ru"
	fallbackDomain = ".wildberries.ru"
)

// HTTPHarvester collects the cookies a plain HTTP client receives from the
// home page and a search page. It rarely obtains x_wbaas_token, which needs
// JavaScript, but it gets _wbauid.
type HTTPHarvester struct {
	siteURL  string
	proxyURL string
	timeout  time.Duration
	logger   *slog.Logger
	pause    func(ctx context.Context, d time.Duration) error
}

// HTTPOption configures an HTTPHarvester.
type HTTPOption func(*HTTPHarvester)

// WithSiteURL overrides the marketplace origin.
func WithSiteURL(u string) HTTPOption {
	return func(h *HTTPHarvester) {
		h.siteURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPProxy routes requests through proxyURL.
func WithHTTPProxy(proxyURL string) HTTPOption {
	return func(h *HTTPHarvester) {
		h.proxyURL = proxyURL
	}
}

// WithHTTPLogger sets a custom logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPHarvester) {
		h.logger = logger
	}
}

// NewHTTPHarvester creates an HTTPHarvester.
func NewHTTPHarvester(opts ...HTTPOption) *HTTPHarvester {
	h := &HTTPHarvester{
		siteURL: defaultSiteURL,
		timeout: 15 * time.Second,
		logger:  slog.Default(),
		pause:   sleep,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Harvest implements Harvester. Any cookies received count as success; each
// is stored with domain .wildberries.ru and path /.
func (h *HTTPHarvester) Harvest(ctx context.Context) ([]Cookie, error) {
	httpClient, err := transport.NewHTTPClient(h.proxyURL, h.timeout)
	if err != nil {
		return nil, err
	}

	client := resty.NewWithClient(httpClient).
		SetHeaders(flatten(BaseHeaders()))

	h.logger.Info("trying plain http cookie fetch")

	home := h.siteURL + "/"
	resp, err := client.R().SetContext(ctx).Get(home)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch home page: %w", err)
	}
	if DetectChallenge(resp.Body()) {
		h.logger.Debug("home page served an anti-bot challenge")
	}

	if err := h.pause(ctx, 2*time.Second); err != nil {
		return nil, err
	}

	search := h.siteURL + "/catalog/0/search.aspx?search=test"
	if _, err := client.R().SetContext(ctx).Get(search); err != nil {
		return nil, fmt.Errorf("failed to fetch search page: %w", err)
	}

	return jarCookies(httpClient.Jar, home, search), nil
}

// jarCookies returns the unique cookies the jar holds for urls.
func jarCookies(jar http.CookieJar, urls ...string) []Cookie {
	if jar == nil {
		return nil
	}

	seen := make(map[string]bool)
	var list []Cookie
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		for _, c := range jar.Cookies(u) {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			list = append(list, Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: fallbackDomain,
				Path:   "/",
			})
		}
	}
	return list
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
