// Package frontier implements the crawl frontier: a priority queue of
// pending addresses and the deduplicator that guards admission into it.
//
// The queue orders entries by score (highest first), breaking ties by
// depth (shallowest first) and then by admission sequence (oldest
// first), so equal-score entries crawl breadth-first in discovery
// order. The deduplicator admits each canonical address exactly once
// per run, even under concurrent discovery from multiple workers.
package frontier
