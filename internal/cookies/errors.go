package cookies

import "errors"

var (
	// ErrNoCookies is returned by Manager.Update when neither the browser nor
	// the HTTP fallback produced cookies.
	ErrNoCookies = errors.New("failed to obtain cookies via browser and http fallback")

	// ErrTooFewCookies is returned by a browser harvest that ended with fewer
	// than two cookies, which means the anti-bot challenge did not run.
	ErrTooFewCookies = errors.New("browser returned too few cookies")

	// ErrBrowserNotFound is returned when no Chromium binary can be located.
	ErrBrowserNotFound = errors.New("chromium binary not found")
)
