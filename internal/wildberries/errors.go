package wildberries

import "errors"

var (
	// ErrTokenExpired is returned for status 498, which the API sends when
	// x_wbaas_token is missing or stale.
	ErrTokenExpired = errors.New("search token expired")

	// ErrRateLimited is returned for status 429.
	ErrRateLimited = errors.New("search rate limited")

	// ErrBlocked is returned when a 200 response carries an HTML page or a
	// block notice instead of JSON.
	ErrBlocked = errors.New("search blocked by anti-bot page")

	// ErrInvalidResponse is returned when a 200 response is neither JSON
	// nor a recognizable block page.
	ErrInvalidResponse = errors.New("invalid search response")

	// ErrUnexpectedStatus is returned for any other non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected search status")

	// ErrNilCookieSource is returned by NewClient without a cookie source.
	ErrNilCookieSource = errors.New("cookie source is nil")
)
