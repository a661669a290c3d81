// Package monitor runs the price watch loop.
//
// Each pass groups the watched products by name, searches every name with
// a bounded number of concurrent workers and a random pause before each
// request, and announces offers whose discounted price falls inside a
// row's window. An offer for a URL is announced again only when its price
// drops below the last announced one. The bot can trigger a pass early or
// request a restart, which aborts the running pass and recreates the
// search client.
package monitor
