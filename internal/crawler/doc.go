// Package crawler contains the crawl engine: the state machine that
// drives a run from seeds to a final result.
//
// The engine owns a dispatcher goroutine and a bounded worker pool.
// The dispatcher pops frontier entries, enforces the page budget, and
// hands tasks to workers; each worker acquires the rate limiter,
// fetches the page, runs the feature pipeline, parses links, and feeds
// discoveries back through the admission path (normalize, scope, dedup,
// frontier). Per-address failures are recorded and retried up to the
// attempt budget; only a fatal stage result or context cancellation
// ends a run early.
package crawler
