package frontier

import "github.com/canopy-crawler/canopy/internal/urlutil"

// Entry is one pending address in the frontier.
type Entry struct {
	// Address is the canonical address to fetch.
	Address urlutil.Address

	// Depth is the link distance from the seeds. Seeds are depth 0.
	Depth int

	// Score orders the queue. Higher scores dequeue first.
	Score float64

	// Parent is the address this entry was discovered from. Empty for
	// seeds.
	Parent string

	// Attempts counts fetches already issued for this entry. Zero until
	// the first pop; incremented by the engine before each fetch.
	Attempts int

	// seq is the admission sequence number, assigned by Push. It breaks
	// score and depth ties in favor of older entries.
	seq uint64
}
