// Package log provides the crawler's logging setup, built on top of
// the standard slog package.
//
// Crawl logs carry URLs, page titles, and error strings scraped from
// arbitrary web pages, any of which can be thousands of characters
// long. The TruncatingHandler caps attribute values so one hostile or
// broken page cannot flood the log, while keeping the standard slog
// API and working with any underlying handler.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("page crawled",
//	    "url", pageURL, // truncated if absurdly long
//	    "depth", depth,
//	)
package log
