// Package transport builds the HTTP clients wbwatch uses to reach
// Wildberries: connection pooling, timeouts, a cookie jar and an optional
// HTTP or SOCKS5 proxy (HTTP_PROXY_URL).
package transport
