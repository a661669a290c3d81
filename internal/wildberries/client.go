package wildberries

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wbpricebot/wbwatch/internal/config"
	"github.com/wbpricebot/wbwatch/internal/cookies"
	"github.com/wbpricebot/wbwatch/internal/metrics"
	"github.com/wbpricebot/wbwatch/internal/model"
	"github.com/wbpricebot/wbwatch/internal/transport"
)

const (
	// requestTimeout bounds a single search request.
	requestTimeout = 15 * time.Second

	// maxRetries bounds re-attempts of one search across every retry reason.
	maxRetries = 3

	// maxTimeoutRetries bounds re-attempts after timeouts.
	maxTimeoutRetries = 2

	rateLimitWait = 60 * time.Second
	refreshWait   = 2 * time.Second
)

// CookieSource supplies request headers and refreshes the session.
// *cookies.Manager implements it.
type CookieSource interface {
	Headers(query string) http.Header
	Update(ctx context.Context, force bool) error
	ShouldUpdate() bool
}

// Client searches the Wildberries catalogue.
type Client struct {
	http    *resty.Client
	cookies CookieSource
	baseURL string
	filters Filters
	logger  *slog.Logger
	pause   func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL  string
	proxyURL string
	filters  Filters
	logger   *slog.Logger
	timeout  time.Duration
	pause    func(ctx context.Context, d time.Duration) error
}

// WithBaseURL overrides config.DefaultSearchURL.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithProxy routes requests through proxyURL (http, https, socks5).
func WithProxy(proxyURL string) Option {
	return func(o *clientOptions) {
		o.proxyURL = proxyURL
	}
}

// WithFilters replaces DefaultFilters.
func WithFilters(f Filters) Option {
	return func(o *clientOptions) {
		o.filters = f
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// withPause replaces the retry sleeps; tests use it to avoid waiting.
func withPause(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *clientOptions) {
		o.pause = fn
	}
}

// NewClient creates a search client using src for headers and refreshes.
func NewClient(src CookieSource, opts ...Option) (*Client, error) {
	if src == nil {
		return nil, ErrNilCookieSource
	}

	o := clientOptions{
		baseURL: config.DefaultSearchURL,
		filters: DefaultFilters(),
		logger:  slog.Default(),
		timeout: requestTimeout,
		pause:   sleep,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient, err := transport.NewHTTPClient(o.proxyURL, o.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	// Cookies travel in the explicit Cookie header only.
	httpClient.Jar = nil

	return &Client{
		http:    resty.NewWithClient(httpClient),
		cookies: src,
		baseURL: o.baseURL,
		filters: o.filters,
		logger:  o.logger,
		pause:   o.pause,
	}, nil
}

// Search returns the products found for query after keyword and exclusion
// filtering. A search that yields nothing returns nil and no error.
func (c *Client) Search(ctx context.Context, query string, keywords, exclusions []string) ([]model.RawProduct, error) {
	start := time.Now()
	products, err := c.searchByQuery(ctx, query, keywords)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Searches.WithLabelValues(outcome(err)).Inc()
		c.logger.Error("search failed", "query", query, "error", err)
		return nil, err
	}
	if len(products) == 0 {
		metrics.Searches.WithLabelValues("empty").Inc()
		c.logger.Warn("no products found", "query", query)
		return nil, nil
	}

	products = FilterByKeywords(products, keywords)
	products = FilterByExclusions(products, exclusions)

	metrics.Searches.WithLabelValues("ok").Inc()
	metrics.ProductsFound.Add(float64(len(products)))
	c.logger.Info("products found after filtering", "query", query, "count", len(products))
	return products, nil
}

// searchByQuery runs the request and its retries.
func (c *Client) searchByQuery(ctx context.Context, query string, keywords []string) ([]model.RawProduct, error) {
	rawQuery := BuildParams(query, keywords, c.filters).Encode()
	timeouts := 0

	for retries := 0; ; retries++ {
		products, err := c.fetch(ctx, query, rawQuery)
		if err == nil {
			return products, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if retries >= maxRetries {
			return nil, err
		}

		switch {
		case errors.Is(err, ErrTokenExpired):
			c.logger.Warn("got 498, forcing cookie update and retrying", "query", query)
			if err := c.refresh(ctx); err != nil {
				return nil, err
			}
			products, err := c.fetch(ctx, query, rawQuery)
			if err != nil {
				return nil, fmt.Errorf("retry after token refresh failed: %w", err)
			}
			return products, nil

		case errors.Is(err, ErrBlocked):
			c.logger.Warn("got blocked response, forcing cookie update", "query", query)
			if err := c.refresh(ctx); err != nil {
				return nil, err
			}

		case errors.Is(err, ErrRateLimited):
			c.logger.Warn("rate limited, waiting before retry", "query", query, "wait", rateLimitWait)
			if err := c.pause(ctx, rateLimitWait); err != nil {
				return nil, err
			}

		case isTimeout(err):
			if timeouts >= maxTimeoutRetries {
				return nil, err
			}
			if err := c.afterTimeout(ctx, timeouts); err != nil {
				return nil, err
			}
			timeouts++

		default:
			return nil, err
		}
	}
}

// refresh forces a cookie update and waits for the session to settle.
// A failed update is logged; the retry goes ahead with whatever cookies
// are present.
func (c *Client) refresh(ctx context.Context) error {
	if err := c.cookies.Update(ctx, true); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("cookie update failed", "error", err)
	}
	return c.pause(ctx, refreshWait)
}

// afterTimeout prepares the n-th timeout retry (n counts from 0). The first
// retry only waits 2s; the second refreshes stale cookies and waits 5s.
func (c *Client) afterTimeout(ctx context.Context, n int) error {
	if n == 0 {
		c.logger.Info("timeout occurred, retrying without refreshing cookies")
		return c.pause(ctx, 2*time.Second)
	}

	if c.cookies.ShouldUpdate() {
		c.logger.Info("timeout occurred, refreshing cookies before retry")
		if err := c.cookies.Update(ctx, true); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("cookie update failed during timeout retry", "error", err)
		}
	} else {
		c.logger.Info("cookies appear fresh, retrying without refresh")
	}
	return c.pause(ctx, 5*time.Second)
}

// fetch performs one request and classifies the response.
func (c *Client) fetch(ctx context.Context, query, rawQuery string) ([]model.RawProduct, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaderMultiValues(c.cookies.Headers(query)).
		Get(c.baseURL + "?" + rawQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}

	body := resp.Body()
	switch resp.StatusCode() {
	case http.StatusOK:
		if len(body) == 0 {
			c.logger.Error("empty response body", "query", query)
			return nil, nil
		}
		return c.decode(query, body)
	case 498:
		return nil, ErrTokenExpired
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		c.logger.Error("api returned unexpected status",
			"query", query,
			"status", resp.StatusCode(),
			"body", preview(body),
		)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}
}

func (c *Client) decode(query string, body []byte) ([]model.RawProduct, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var sr model.SearchResponse
	if err := dec.Decode(&sr); err != nil {
		c.logger.Error("failed to parse search response", "query", query, "error", err, "body", preview(body))
		if cookies.DetectChallenge(body) {
			c.logger.Warn("got blocked response instead of json", "title", cookies.PageTitle(body))
			return nil, ErrBlocked
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return sr.Products, nil
}

// isTimeout reports whether err is a request timeout rather than a
// cancellation of the caller's context.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// outcome maps a search error to its metrics label.
func outcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case isTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}

func preview(body []byte) string {
	const limit = 500
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
