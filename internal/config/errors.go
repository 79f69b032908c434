package config

import "errors"

// Configuration validation errors.
// These are returned by Builder.Build and Config.Validate so callers can
// use errors.Is for programmatic handling while the messages stay
// human-readable.
var (
	// ErrNoSeeds is returned when no seed address is configured.
	// A crawl without seeds has nothing to do.
	ErrNoSeeds = errors.New("no seed addresses: at least one seed is required")

	// ErrInvalidSeed is returned when a seed address cannot be normalized
	// into a crawlable http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed address")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the depth limit is negative.
	// Depth 0 means seeds only.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMode is returned for an unknown crawl mode string.
	ErrInvalidMode = errors.New("invalid crawl mode")

	// ErrWhitelistEmpty is returned when whitelist mode is selected but no
	// allowed domains are configured. An empty whitelist admits nothing,
	// which is never what the operator meant.
	ErrWhitelistEmpty = errors.New("whitelist mode requires at least one allowed domain")

	// ErrInvalidMaxDomains is returned when cross-domain mode is selected
	// with a non-positive domain budget.
	ErrInvalidMaxDomains = errors.New("invalid max domains: must be positive in cross-domain mode")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid max concurrency: must be positive")

	// ErrInvalidDelay is returned when the per-host delay is negative.
	// Use 0 to disable politeness spacing.
	ErrInvalidDelay = errors.New("invalid per-host delay: must be non-negative")

	// ErrInvalidTimeout is returned when the per-task timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid per-task timeout: must be positive")

	// ErrInvalidMaxAttempts is returned when the attempt limit is not positive.
	// The first fetch counts as an attempt, so the minimum is 1.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrUnknownFeature is returned when the enabled feature list names a
	// feature this build does not provide.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrDuplicateFeature is returned when the same feature is enabled twice.
	// The pipeline invokes each stage once per task; a duplicate entry is
	// almost certainly a configuration mistake.
	ErrDuplicateFeature = errors.New("duplicate feature in enabled list")
)
