package cookies

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserAgent is the desktop Chrome identity used by the browser and by
// every API request.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/143.0.0.0 Safari/537.36"

const searchPageURL = "https://www.wildberries.ru/catalog/0/search.aspx"

// Accept-Encoding is left to net/http so gzip bodies are decoded transparently.
var baseHeaders = map[string]string{
	"Accept":             "application/json",
	"Accept-Language":    "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	"User-Agent":         UserAgent,
	"Cache-Control":      "no-cache",
	"DNT":                "1",
	"Priority":           "u=1, i",
	"Sec-CH-UA":          `"Chromium";v="143", "Not A(Brand";v="24"`,
	"Sec-CH-UA-Mobile":   "?0",
	"Sec-CH-UA-Platform": `"macOS"`,
	"Sec-Fetch-Dest":     "empty",
	"Sec-Fetch-Mode":     "cors",
	"Sec-Fetch-Site":     "same-origin",
	"X-Requested-With":   "XMLHttpRequest",
	"X-Spa-Version":      "13.22.10",
	"X-UserID":           "0",
}

// BaseHeaders returns a fresh copy of the static browser-like headers.
func BaseHeaders() http.Header {
	h := make(http.Header, len(baseHeaders)+4)
	for k, v := range baseHeaders {
		h.Set(k, v)
	}
	return h
}

// Headers builds the request headers for a search for query.
//
// Each call yields a new X-QueryID. The Cookie header carries every cookie
// with a non-empty name and value, in harvest order.
func (m *Manager) Headers(query string) http.Header {
	h := BaseHeaders()

	h.Set("X-QueryID", m.queryID())
	h.Set("DeviceID", m.deviceID)
	h.Set("Referer", RefererFor(query))

	list := m.Cookies()
	if len(list) == 0 {
		m.logger.Warn("no cookies available for request")
		return h
	}

	h.Set("Cookie", CookieHeader(list))
	m.logger.Debug("sending cookies", "names", cookieNames(list))
	return h
}

// queryID returns "qid" + device id hex + unix milliseconds + 8 random hex digits.
func (m *Manager) queryID() string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("qid%s%d%s",
		strings.TrimPrefix(m.deviceID, "site_"),
		m.now().UnixMilli(),
		rnd,
	)
}

// RefererFor returns the search page URL for query, or the bare search
// page when query is empty.
func RefererFor(query string) string {
	if query == "" {
		return searchPageURL
	}
	return searchPageURL + "?search=" + pathQuote(query)
}

// CookieHeader renders list as "name=value; name=value".
func CookieHeader(list []Cookie) string {
	parts := make([]string, 0, len(list))
	for _, c := range list {
		if c.Name == "" || c.Value == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// pathQuote percent-encodes s keeping "/" literal and encoding spaces as %20.
func pathQuote(s string) string {
	q := url.QueryEscape(s)
	q = strings.ReplaceAll(q, "+", "%20")
	return strings.ReplaceAll(q, "%2F", "/")
}

// sleep waits for d or until ctx is done.
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
