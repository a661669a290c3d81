// Package main provides the entry point for the wbwatch CLI.
//
// wbwatch watches Wildberries prices for an admin-managed list of products
// and announces offers inside each product's price window to a Telegram
// channel. Started without arguments it runs the bot and the monitor.
//
// Usage:
//
//	wbwatch
//	wbwatch search "iPhone 16 Pro 256GB"
//	wbwatch export "iPhone 16 Pro 256GB" -o results.xlsx
//
// See --help for all available options.
package main

// main is the entry point for wbwatch.
func main() {
	Execute()
}
