// Package urlutil provides URL normalization for crawl deduplication.
//
// Every discovered link passes through a Normalizer before it reaches the
// deduplicator or the frontier. The canonical form produced here is the
// identity of a page for an entire crawl run, so the normalization rules
// directly determine what "the same page" means.
//
// Design decision: Query parameter order is preserved by default because
// some servers serve different content for different parameter orders.
// Sites that treat query strings as sets can opt into sorted parameters
// via WithSortQuery, at the cost of changed dedup identity.
package urlutil
