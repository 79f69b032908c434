// Package scope decides which discovered addresses belong to a crawl.
//
// A Policy evaluates host membership for the configured crawl mode and
// computes the frontier score for admitted entries. In cross-domain
// modes the policy also enforces the distinct-host budget; evaluation
// and the budget commit happen under one lock so concurrent workers
// can never admit more hosts than the budget allows.
//
// Rejection is an outcome, not an error: the engine records rejected
// addresses as skipped and keeps crawling.
package scope
