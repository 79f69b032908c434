// Package main provides the entry point for the Canopy CLI.
//
// Canopy is a polite web crawler with a priority frontier, per-host
// rate limiting, and an optional per-page feature pipeline
// (screenshots, DOM extraction, stylesheet download, link
// prioritization).
//
// Usage:
//
//	canopy crawl https://example.com
//	canopy crawl --mode whitelist --allow example.com https://example.com
//
// See --help for all available options.
package main

// main is the entry point for Canopy.
func main() {
	Execute()
}
