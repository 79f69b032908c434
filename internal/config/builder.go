package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// Builder is the sole construction path for a Config. It accumulates
// settings fluently and validates them once in Build; an engine can never
// observe a half-configured state.
//
// Grounded on the same idea as functional options but kept as an explicit
// builder because crawl configuration is assembled incrementally from
// several sources (flags, config file, feature toggles) before a single
// validation point.
type Builder struct {
	seeds []string

	maxPages   int
	maxDepth   int
	mode       Mode
	maxDomains int

	allowed  []string
	blocked  []string
	priority []string

	features []string

	perHostDelay   time.Duration
	maxConcurrency int
	perTaskTimeout time.Duration
	maxAttempts    int
	retryBackoff   time.Duration

	userAgent   string
	maxBodySize int64

	sortQuery     bool
	stripTracking bool

	storeHTML bool
	outputDir string
	indexDir  string
}

// NewBuilder creates a Builder seeded with the default configuration.
func NewBuilder(seeds ...string) *Builder {
	return &Builder{
		seeds:          seeds,
		maxPages:       DefaultMaxPages,
		maxDepth:       DefaultMaxDepth,
		mode:           ModeSingleDomain,
		maxDomains:     DefaultMaxDomains,
		perHostDelay:   DefaultPerHostDelay,
		maxConcurrency: DefaultMaxConcurrency,
		perTaskTimeout: DefaultPerTaskTimeout,
		maxAttempts:    DefaultMaxAttempts,
		retryBackoff:   DefaultRetryBackoff,
		userAgent:      DefaultUserAgent,
		maxBodySize:    DefaultMaxBodySize,
		storeHTML:      true,
		outputDir:      DataDir(),
	}
}

// Seeds replaces the seed address list.
func (b *Builder) Seeds(seeds ...string) *Builder {
	b.seeds = seeds
	return b
}

// MaxPages sets the page budget for the run.
func (b *Builder) MaxPages(n int) *Builder {
	b.maxPages = n
	return b
}

// MaxDepth sets the link-distance limit from the seeds.
func (b *Builder) MaxDepth(n int) *Builder {
	b.maxDepth = n
	return b
}

// Mode selects the scope policy.
func (b *Builder) Mode(m Mode) *Builder {
	b.mode = m
	return b
}

// MaxDomains bounds distinct hosts in cross-domain and graph modes.
func (b *Builder) MaxDomains(n int) *Builder {
	b.maxDomains = n
	return b
}

// AllowedDomains sets the whitelist host set.
func (b *Builder) AllowedDomains(hosts ...string) *Builder {
	b.allowed = hosts
	return b
}

// BlockedDomains sets hosts never admitted in any mode.
func (b *Builder) BlockedDomains(hosts ...string) *Builder {
	b.blocked = hosts
	return b
}

// PriorityDomains sets hosts dequeued ahead of same-depth entries.
func (b *Builder) PriorityDomains(hosts ...string) *Builder {
	b.priority = hosts
	return b
}

// PerHostDelay sets the minimum spacing between requests to one host.
func (b *Builder) PerHostDelay(d time.Duration) *Builder {
	b.perHostDelay = d
	return b
}

// MaxConcurrency sets the global in-flight fetch ceiling.
func (b *Builder) MaxConcurrency(n int) *Builder {
	b.maxConcurrency = n
	return b
}

// PerTaskTimeout bounds one fetch plus its pipeline stages.
func (b *Builder) PerTaskTimeout(d time.Duration) *Builder {
	b.perTaskTimeout = d
	return b
}

// MaxAttempts sets the per-address fetch attempt limit.
func (b *Builder) MaxAttempts(n int) *Builder {
	b.maxAttempts = n
	return b
}

// RetryBackoff sets the base delay before retrying a failed fetch.
func (b *Builder) RetryBackoff(d time.Duration) *Builder {
	b.retryBackoff = d
	return b
}

// UserAgent overrides the HTTP User-Agent header.
func (b *Builder) UserAgent(ua string) *Builder {
	b.userAgent = ua
	return b
}

// MaxBodySize sets the response body truncation limit in bytes.
func (b *Builder) MaxBodySize(n int64) *Builder {
	b.maxBodySize = n
	return b
}

// SortQueryParams enables sorted query canonicalization.
func (b *Builder) SortQueryParams(sort bool) *Builder {
	b.sortQuery = sort
	return b
}

// StripTrackingParams enables tracking-parameter removal.
func (b *Builder) StripTrackingParams(strip bool) *Builder {
	b.stripTracking = strip
	return b
}

// StoreHTML toggles persisting fetched page bodies.
func (b *Builder) StoreHTML(store bool) *Builder {
	b.storeHTML = store
	return b
}

// OutputDir sets the artifact store base directory.
func (b *Builder) OutputDir(dir string) *Builder {
	b.outputDir = dir
	return b
}

// IndexDir enables the crawl index database in the given directory.
func (b *Builder) IndexDir(dir string) *Builder {
	b.indexDir = dir
	return b
}

// WithFeature appends a named feature to the pipeline. Order of calls is
// pipeline order.
func (b *Builder) WithFeature(name string) *Builder {
	b.features = append(b.features, name)
	return b
}

// WithCapture enables the screenshot capture stage.
func (b *Builder) WithCapture() *Builder { return b.WithFeature(FeatureCapture) }

// WithDOMExtraction enables the structural extraction stage.
func (b *Builder) WithDOMExtraction() *Builder { return b.WithFeature(FeatureDOM) }

// WithCSSDownload enables the stylesheet download stage.
func (b *Builder) WithCSSDownload() *Builder { return b.WithFeature(FeatureCSS) }

// WithGraphCrawling enables the link prioritization stage.
func (b *Builder) WithGraphCrawling() *Builder { return b.WithFeature(FeatureGraph) }

// Build normalizes the seeds, validates every setting, and returns an
// immutable Config. All slices and sets are copied so the builder can be
// reused or discarded without affecting the built configuration.
func (b *Builder) Build() (*Config, error) {
	normalizer := urlutil.NewNormalizer(
		urlutil.WithSortQuery(b.sortQuery),
		urlutil.WithStripTracking(b.stripTracking),
	)

	seeds := make([]string, 0, len(b.seeds))
	for _, raw := range b.seeds {
		addr, err := normalizer.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSeed, raw, err)
		}
		seeds = append(seeds, addr.Key)
	}

	cfg := &Config{
		Seeds:               seeds,
		MaxPages:            b.maxPages,
		MaxDepth:            b.maxDepth,
		Mode:                b.mode,
		AllowedDomains:      hostSet(b.allowed),
		BlockedDomains:      hostSet(b.blocked),
		PriorityDomains:     hostSet(b.priority),
		MaxDomains:          b.maxDomains,
		EnabledFeatures:     append([]string(nil), b.features...),
		PerHostDelay:        b.perHostDelay,
		MaxConcurrency:      b.maxConcurrency,
		PerTaskTimeout:      b.perTaskTimeout,
		MaxAttempts:         b.maxAttempts,
		RetryBackoff:        b.retryBackoff,
		UserAgent:           b.userAgent,
		MaxBodySize:         b.maxBodySize,
		SortQueryParams:     b.sortQuery,
		StripTrackingParams: b.stripTracking,
		StoreHTML:           b.storeHTML,
		OutputDir:           b.outputDir,
		IndexDir:            b.indexDir,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// hostSet lowercases hosts into a set, dropping empty entries.
func hostSet(hosts []string) map[string]bool {
	set := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			set[h] = true
		}
	}
	return set
}
