package feature

import (
	"context"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// Task identifies one fetched page flowing through the pipeline.
type Task struct {
	// Address is the canonical address that was fetched.
	Address urlutil.Address

	// Depth is the link distance from the seeds.
	Depth int

	// Parent is the address the page was discovered from.
	Parent string
}

// Discovery is a link a stage wants the engine to consider. Discovered
// links go through the same admission path as parser links: normalize,
// scope, dedup, frontier.
type Discovery struct {
	// URL is the link target, absolute. Canonicalized by the engine.
	URL string

	// Bonus adjusts the frontier score of the admitted entry. Negative
	// values veto the link entirely.
	Bonus float64
}

// StageResult is what one feature produced for one task.
type StageResult struct {
	// Feature is the producing stage's name.
	Feature string

	// Artifacts reference stored by-products.
	Artifacts []model.Artifact

	// Links are additional or re-scored link candidates.
	Links []Discovery

	// Err records a stage failure. Stage errors are logged and recorded
	// on the outcome; they do not stop the crawl unless Fatal is set.
	Err error

	// Fatal marks an error the run cannot continue past, such as a
	// storage volume going away.
	Fatal bool
}

// Feature is one optional processing stage.
//
// Initialize acquires resources, BeforeCrawl runs once when crawling
// starts, ProcessTask runs for every fetched page, and Finalize
// releases resources. A feature whose Initialize returned nil gets
// exactly one Finalize call, no matter how the run ends.
type Feature interface {
	// Name returns the stage name used in configuration and logs.
	Name() string

	// Initialize prepares the feature for a run.
	Initialize(ctx context.Context, cfg *config.Config) error

	// BeforeCrawl runs after every feature initialized, before the
	// first fetch.
	BeforeCrawl(ctx context.Context) error

	// ProcessTask handles one fetched page. Must be safe for concurrent
	// use; the worker pool calls it from several goroutines.
	ProcessTask(ctx context.Context, task *Task, doc *model.Document) *StageResult

	// Finalize releases the feature's resources.
	Finalize(ctx context.Context) error
}

// ArtifactStore persists stage by-products. Implemented by the storage
// package; features depend on the interface so tests can substitute an
// in-memory store.
type ArtifactStore interface {
	// Store writes one artifact and returns its path.
	Store(kind, domain, hash, ext string, data []byte) (string, error)
}
