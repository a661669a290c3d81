// Package cookies keeps a valid Wildberries session for the search API.
//
// The search endpoint rejects requests without the x_wbaas_token cookie,
// which is set by a JavaScript challenge on the storefront. Manager obtains
// cookies with a headless Chromium (BrowserHarvester) and falls back to a
// plain HTTP client (HTTPHarvester) that at least collects _wbauid. Cookies
// are cached on disk for the refresh interval so restarts skip the browser.
//
// Manager.Headers builds the browser-like header set for every request,
// including a fresh X-QueryID, the DeviceID and the Cookie header.
package cookies
