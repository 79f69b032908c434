package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Mode controls which discovered hosts are eligible for crawling.
type Mode string

const (
	// ModeSingleDomain admits only hosts that appear in the seed list.
	ModeSingleDomain Mode = "single_domain"

	// ModeCrossDomain follows links across hosts up to MaxDomains
	// distinct hosts.
	ModeCrossDomain Mode = "cross_domain"

	// ModeWhitelist admits only hosts in AllowedDomains.
	ModeWhitelist Mode = "whitelist"

	// ModeGraph behaves like cross-domain crawling but is intended to be
	// combined with the graph feature, which re-scores discovered links.
	ModeGraph Mode = "graph"
)

// Feature names accepted in EnabledFeatures. Order in the list is the
// pipeline execution order.
const (
	// FeatureCapture takes a full-page screenshot of each crawled page
	// with a headless browser.
	FeatureCapture = "capture"

	// FeatureDOM extracts a depth-limited structural tree of each page.
	FeatureDOM = "dom"

	// FeatureCSS downloads external stylesheets referenced by each page.
	FeatureCSS = "css"

	// FeatureGraph re-scores discovered links with path and extension
	// heuristics and per-domain reference scores.
	FeatureGraph = "graph"
)

// KnownFeatures lists every feature name this build provides.
var KnownFeatures = []string{FeatureCapture, FeatureDOM, FeatureCSS, FeatureGraph}

// Default configuration values. The crawl limits mirror the politeness
// posture of a well-behaved crawler: bounded pages, bounded depth, one
// second between requests to the same host.
const (
	// DefaultMaxPages bounds the total pages fetched per run. This is the
	// primary termination guarantee for sites with unbounded link graphs.
	DefaultMaxPages = 100

	// DefaultMaxDepth bounds how far a run walks from its seeds.
	// Depth 0 is the seed itself.
	DefaultMaxDepth = 3

	// DefaultMaxDomains bounds distinct hosts in cross-domain mode.
	DefaultMaxDomains = 100

	// DefaultPerHostDelay spaces consecutive requests to one host.
	// One second is conservative and respectful of server resources.
	DefaultPerHostDelay = 1 * time.Second

	// DefaultMaxConcurrency is the global ceiling on in-flight fetches.
	DefaultMaxConcurrency = 5

	// DefaultPerTaskTimeout bounds one fetch plus its pipeline stages.
	DefaultPerTaskTimeout = 30 * time.Second

	// DefaultMaxAttempts is the fetch attempt limit per address,
	// counting the first try.
	DefaultMaxAttempts = 3

	// DefaultRetryBackoff is the base delay before a retry; it doubles
	// per attempt.
	DefaultRetryBackoff = 1 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests. A
	// descriptive User-Agent lets operators recognize crawler traffic.
	DefaultUserAgent = "CanopyCrawler/1.0 (+https://github.com/canopy-crawler/canopy)"

	// DefaultMaxBodySize truncates response bodies to keep memory
	// bounded on unexpectedly large pages.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is used for XDG directory paths.
	AppName = "canopy"
)

// Config holds everything a crawl run needs. It is immutable after
// Builder.Build: the builder hands out defensive copies of every slice
// and set so later mutation of builder state cannot leak into a running
// engine.
type Config struct {
	// Seeds are the normalized starting addresses, in configured order.
	Seeds []string

	// MaxPages bounds the number of pages fetched in one run.
	MaxPages int

	// MaxDepth bounds link distance from the seeds. Depth 0 = seeds only.
	MaxDepth int

	// Mode selects the scope policy.
	Mode Mode

	// AllowedDomains is the whitelist host set (whitelist mode only).
	AllowedDomains map[string]bool

	// BlockedDomains are hosts never admitted in any mode.
	BlockedDomains map[string]bool

	// PriorityDomains are hosts whose entries are dequeued before
	// same-depth entries from other hosts.
	PriorityDomains map[string]bool

	// MaxDomains bounds distinct hosts in cross-domain and graph modes.
	MaxDomains int

	// EnabledFeatures is the ordered pipeline stage list.
	EnabledFeatures []string

	// PerHostDelay is the minimum spacing between requests to one host.
	PerHostDelay time.Duration

	// MaxConcurrency is the global in-flight fetch ceiling.
	MaxConcurrency int

	// PerTaskTimeout bounds one task (fetch plus pipeline stages).
	PerTaskTimeout time.Duration

	// MaxAttempts is the per-address fetch attempt limit, counting the
	// first try.
	MaxAttempts int

	// RetryBackoff is the base delay before retrying a failed fetch.
	RetryBackoff time.Duration

	// UserAgent is sent with every HTTP request.
	UserAgent string

	// MaxBodySize truncates response bodies, in bytes.
	MaxBodySize int64

	// SortQueryParams sorts query parameters during normalization.
	// Changes dedup identity; see the urlutil package.
	SortQueryParams bool

	// StripTrackingParams removes utm_*-style parameters during
	// normalization. Changes dedup identity.
	StripTrackingParams bool

	// StoreHTML writes each fetched page body through the artifact store.
	StoreHTML bool

	// OutputDir is the artifact store base directory.
	OutputDir string

	// IndexDir is the crawl index database directory. Empty disables
	// the index.
	IndexDir string
}

// DataDir returns the default artifact directory under the XDG data home.
// On Linux: ~/.local/share/canopy.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// CacheDir returns the XDG cache directory for the crawler.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// FeatureEnabled reports whether the named feature is in the pipeline.
func (c *Config) FeatureEnabled(name string) bool {
	for _, f := range c.EnabledFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// Validate checks the configuration and returns the first problem found.
// Builder.Build calls this; it is exported so configurations loaded from
// files can be checked the same way.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	switch c.Mode {
	case ModeSingleDomain:
	case ModeWhitelist:
		if len(c.AllowedDomains) == 0 {
			return ErrWhitelistEmpty
		}
	case ModeCrossDomain, ModeGraph:
		if c.MaxDomains <= 0 {
			return ErrInvalidMaxDomains
		}
	default:
		return ErrInvalidMode
	}
	if c.MaxConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.PerHostDelay < 0 {
		return ErrInvalidDelay
	}
	if c.PerTaskTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	seen := make(map[string]bool, len(c.EnabledFeatures))
	for _, f := range c.EnabledFeatures {
		if !knownFeature(f) {
			return ErrUnknownFeature
		}
		if seen[f] {
			return ErrDuplicateFeature
		}
		seen[f] = true
	}
	return nil
}

func knownFeature(name string) bool {
	for _, f := range KnownFeatures {
		if f == name {
			return true
		}
	}
	return false
}
