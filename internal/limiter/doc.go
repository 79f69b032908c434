// Package limiter enforces crawl politeness: a global ceiling on
// in-flight fetches and a minimum spacing between consecutive requests
// to the same host.
//
// The global ceiling is a weighted semaphore; per-host spacing uses one
// token-bucket limiter per host with burst 1, so the first request to a
// host proceeds immediately and every later one waits out the
// configured delay. Both waits honor context cancellation.
package limiter
