package feature

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
)

// Pipeline runs an ordered list of features through their lifecycle.
type Pipeline struct {
	features []Feature
	logger   *slog.Logger

	// initialized holds the features whose Initialize returned nil, in
	// initialization order. Only these are finalized.
	initialized []Feature

	closeOnce sync.Once
}

// NewPipeline creates a pipeline over the given features. Order is
// execution order.
func NewPipeline(logger *slog.Logger, features ...Feature) *Pipeline {
	return &Pipeline{features: features, logger: logger}
}

// Initialize initializes every feature in order. On failure the
// already-initialized features stay registered for Close, so a partial
// initialization never leaks resources.
func (p *Pipeline) Initialize(ctx context.Context, cfg *config.Config) error {
	for _, f := range p.features {
		if err := f.Initialize(ctx, cfg); err != nil {
			return fmt.Errorf("initialize feature %s: %w", f.Name(), err)
		}
		p.initialized = append(p.initialized, f)
	}
	return nil
}

// BeforeCrawl notifies every initialized feature that crawling starts.
func (p *Pipeline) BeforeCrawl(ctx context.Context) error {
	for _, f := range p.initialized {
		if err := f.BeforeCrawl(ctx); err != nil {
			return fmt.Errorf("before crawl, feature %s: %w", f.Name(), err)
		}
	}
	return nil
}

// ProcessTask runs every stage against one fetched page, in order, and
// collects their results. Stage errors are recorded in the results, not
// returned; the caller decides what a Fatal result means.
func (p *Pipeline) ProcessTask(ctx context.Context, task *Task, doc *model.Document) []*StageResult {
	results := make([]*StageResult, 0, len(p.initialized))
	for _, f := range p.initialized {
		r := f.ProcessTask(ctx, task, doc)
		if r == nil {
			continue
		}
		if r.Feature == "" {
			r.Feature = f.Name()
		}
		if r.Err != nil {
			p.logger.Warn("feature stage failed",
				slog.String("feature", f.Name()),
				slog.String("url", task.Address.Key),
				slog.String("error", r.Err.Error()))
		}
		results = append(results, r)
		if r.Fatal {
			break
		}
	}
	return results
}

// Close finalizes every initialized feature exactly once, in reverse
// initialization order. Finalize errors are logged, never propagated:
// one feature's broken teardown must not block the others.
func (p *Pipeline) Close(ctx context.Context) {
	p.closeOnce.Do(func() {
		for i := len(p.initialized) - 1; i >= 0; i-- {
			f := p.initialized[i]
			if err := f.Finalize(ctx); err != nil {
				p.logger.Warn("feature finalize failed",
					slog.String("feature", f.Name()),
					slog.String("error", err.Error()))
			}
		}
	})
}

// Build constructs the features named in cfg.EnabledFeatures, in order,
// wiring the shared collaborators into each stage.
func Build(cfg *config.Config, store ArtifactStore, fetcher StylesheetFetcher) ([]Feature, error) {
	features := make([]Feature, 0, len(cfg.EnabledFeatures))
	for _, name := range cfg.EnabledFeatures {
		switch name {
		case config.FeatureCapture:
			features = append(features, NewCapture(store))
		case config.FeatureDOM:
			features = append(features, NewDOMExtractor(store))
		case config.FeatureCSS:
			features = append(features, NewCSSDownloader(store, fetcher))
		case config.FeatureGraph:
			features = append(features, NewPrioritizer())
		default:
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownFeature, name)
		}
	}
	return features, nil
}
