package crawler

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/feature"
	"github.com/canopy-crawler/canopy/internal/fetch"
	"github.com/canopy-crawler/canopy/internal/frontier"
	"github.com/canopy-crawler/canopy/internal/limiter"
	"github.com/canopy-crawler/canopy/internal/parser"
	"github.com/canopy-crawler/canopy/internal/scope"
	"github.com/canopy-crawler/canopy/internal/storage"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// State is the engine lifecycle state.
type State int32

const (
	// StateIdle means Crawl has not been called.
	StateIdle State = iota

	// StateRunning means the run is issuing new tasks.
	StateRunning

	// StateDraining means no new pages will be scheduled; in-flight
	// tasks are finishing.
	StateDraining

	// StateDone means the run completed.
	StateDone

	// StateFailed means the run ended with a fatal error.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Engine drives one crawl run. An engine is single-use: construct,
// Crawl once, read the result.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	fetcher  fetch.Fetcher
	store    feature.ArtifactStore
	index    *storage.Index
	pipeline *feature.Pipeline

	normalizer *urlutil.Normalizer
	parser     *parser.Parser
	frontier   *frontier.Frontier
	dedup      *frontier.Dedup
	policy     *scope.Policy
	limiter    *limiter.Limiter

	state atomic.Int32

	// scheduled counts pages reserved against MaxPages. Reservation
	// happens when the dispatcher issues a fresh entry; retries keep
	// their reservation.
	scheduled atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFetcher replaces the document fetcher. Used by tests.
func WithFetcher(f fetch.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithStore replaces the artifact store.
func WithStore(s feature.ArtifactStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithIndex attaches a crawl index. Without one the run is not indexed.
func WithIndex(idx *storage.Index) Option {
	return func(e *Engine) { e.index = idx }
}

// New creates an engine for the given configuration.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	policy, err := scope.NewPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("build scope policy: %w", err)
	}

	normalizer := urlutil.NewNormalizer(
		urlutil.WithSortQuery(cfg.SortQueryParams),
		urlutil.WithStripTracking(cfg.StripTrackingParams),
	)

	e := &Engine{
		cfg:        cfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		normalizer: normalizer,
		parser:     parser.New(normalizer),
		frontier:   frontier.New(cfg.MaxDepth),
		dedup:      frontier.NewDedup(),
		policy:     policy,
		limiter:    limiter.New(cfg.MaxConcurrency, cfg.PerHostDelay),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.fetcher == nil {
		e.fetcher = fetch.NewHTTPFetcher(cfg.UserAgent, cfg.MaxBodySize)
	}
	if e.store == nil {
		e.store = storage.NewFileStore(cfg.OutputDir)
	}

	features, err := feature.Build(cfg, e.store, e.fetcher)
	if err != nil {
		return nil, err
	}
	e.pipeline = feature.NewPipeline(e.logger, features...)

	return e, nil
}

// State returns the engine lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}
