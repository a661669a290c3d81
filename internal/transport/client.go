package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// ErrInvalidProxyURL is returned when HTTP_PROXY_URL cannot be used.
var ErrInvalidProxyURL = errors.New("invalid proxy url: expected http://, https://, socks5:// or socks5h://")

// dialTimeout bounds TCP connects; Wildberries answers quickly or not at all.
const dialTimeout = 5 * time.Second

// NewTransport creates an http.Transport that optionally routes through a proxy.
// An empty proxyURL means direct connections.
//
// HTTP proxies are handled by http.Transport itself. SOCKS5 proxies go
// through golang.org/x/net/proxy, wrapped to honour context cancellation.
func NewTransport(proxyURL string) (*http.Transport, error) {
	base := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}

	transport := &http.Transport{
		DialContext:           base.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidProxyURL
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, base)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = contextDialer(dialer)
	default:
		return nil, ErrInvalidProxyURL
	}

	return transport, nil
}

// NewHTTPClient creates an HTTP client with a cookie jar and the given timeout.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport, err := NewTransport(proxyURL)
	if err != nil {
		return nil, err
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to DialContext.
// Dialers that already implement proxy.ContextDialer are used directly.
// Otherwise the dial runs in a goroutine and is abandoned on cancellation;
// the underlying attempt may continue briefly.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
