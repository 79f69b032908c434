package config

import (
	"errors"
	"testing"
	"time"
)

// TestBuilderDefaults tests that a minimal builder produces a valid
// configuration with documented defaults.
func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewBuilder("http://example.com").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if cfg.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d, want %d", cfg.MaxPages, DefaultMaxPages)
	}
	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.Mode != ModeSingleDomain {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeSingleDomain)
	}
	if cfg.MaxConcurrency != DefaultMaxConcurrency {
		t.Errorf("MaxConcurrency = %d, want %d", cfg.MaxConcurrency, DefaultMaxConcurrency)
	}
	if cfg.PerHostDelay != DefaultPerHostDelay {
		t.Errorf("PerHostDelay = %v, want %v", cfg.PerHostDelay, DefaultPerHostDelay)
	}
	if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "http://example.com/" {
		t.Errorf("Seeds = %v, want [http://example.com/]", cfg.Seeds)
	}
}

// TestBuilderValidation tests that invalid combinations are rejected at
// build time with the documented sentinel errors.
func TestBuilderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder *Builder
		wantErr error
	}{
		{
			name:    "no seeds",
			builder: NewBuilder(),
			wantErr: ErrNoSeeds,
		},
		{
			name:    "malformed seed",
			builder: NewBuilder("not a url"),
			wantErr: ErrInvalidSeed,
		},
		{
			name:    "zero max pages",
			builder: NewBuilder("http://a.test").MaxPages(0),
			wantErr: ErrInvalidMaxPages,
		},
		{
			name:    "negative depth",
			builder: NewBuilder("http://a.test").MaxDepth(-1),
			wantErr: ErrInvalidMaxDepth,
		},
		{
			name:    "unknown mode",
			builder: NewBuilder("http://a.test").Mode("breadth_first"),
			wantErr: ErrInvalidMode,
		},
		{
			name:    "whitelist without allowed domains",
			builder: NewBuilder("http://a.test").Mode(ModeWhitelist),
			wantErr: ErrWhitelistEmpty,
		},
		{
			name:    "cross-domain without domain budget",
			builder: NewBuilder("http://a.test").Mode(ModeCrossDomain).MaxDomains(0),
			wantErr: ErrInvalidMaxDomains,
		},
		{
			name:    "zero concurrency",
			builder: NewBuilder("http://a.test").MaxConcurrency(0),
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative delay",
			builder: NewBuilder("http://a.test").PerHostDelay(-time.Second),
			wantErr: ErrInvalidDelay,
		},
		{
			name:    "zero timeout",
			builder: NewBuilder("http://a.test").PerTaskTimeout(0),
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero attempts",
			builder: NewBuilder("http://a.test").MaxAttempts(0),
			wantErr: ErrInvalidMaxAttempts,
		},
		{
			name:    "unknown feature",
			builder: NewBuilder("http://a.test").WithFeature("telepathy"),
			wantErr: ErrUnknownFeature,
		},
		{
			name:    "duplicate feature",
			builder: NewBuilder("http://a.test").WithCapture().WithCapture(),
			wantErr: ErrDuplicateFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.builder.Build()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestBuilderImmutability tests that a built config does not alias
// builder state.
func TestBuilderImmutability(t *testing.T) {
	t.Parallel()

	b := NewBuilder("http://a.test").
		Mode(ModeWhitelist).
		AllowedDomains("a.test").
		WithGraphCrawling()

	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Mutate the builder after building.
	b.AllowedDomains("b.test").WithCapture()

	if !cfg.AllowedDomains["a.test"] || cfg.AllowedDomains["b.test"] {
		t.Errorf("AllowedDomains leaked builder mutation: %v", cfg.AllowedDomains)
	}
	if len(cfg.EnabledFeatures) != 1 || cfg.EnabledFeatures[0] != FeatureGraph {
		t.Errorf("EnabledFeatures leaked builder mutation: %v", cfg.EnabledFeatures)
	}
}

// TestFeatureOrder tests that feature order follows call order.
func TestFeatureOrder(t *testing.T) {
	t.Parallel()

	cfg, err := NewBuilder("http://a.test").
		WithCapture().
		WithDOMExtraction().
		WithCSSDownload().
		WithGraphCrawling().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{FeatureCapture, FeatureDOM, FeatureCSS, FeatureGraph}
	if len(cfg.EnabledFeatures) != len(want) {
		t.Fatalf("EnabledFeatures = %v, want %v", cfg.EnabledFeatures, want)
	}
	for i, f := range want {
		if cfg.EnabledFeatures[i] != f {
			t.Errorf("EnabledFeatures[%d] = %q, want %q", i, cfg.EnabledFeatures[i], f)
		}
	}
}
