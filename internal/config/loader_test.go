package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadFile tests YAML configuration loading and builder application.
func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadFile error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("applies to builder", func(t *testing.T) {
		t.Parallel()

		yaml := `
seeds:
  - http://a.test
  - http://b.test
max_pages: 50
max_depth: 2
mode: whitelist
allowed_domains:
  - a.test
  - b.test
features:
  - dom
  - graph
per_host_delay: 500ms
max_concurrency: 3
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		f, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}

		cfg, err := f.Apply(NewBuilder()).Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		if len(cfg.Seeds) != 2 {
			t.Errorf("Seeds = %v, want 2 entries", cfg.Seeds)
		}
		if cfg.MaxPages != 50 {
			t.Errorf("MaxPages = %d, want 50", cfg.MaxPages)
		}
		if cfg.MaxDepth != 2 {
			t.Errorf("MaxDepth = %d, want 2", cfg.MaxDepth)
		}
		if cfg.Mode != ModeWhitelist {
			t.Errorf("Mode = %q, want whitelist", cfg.Mode)
		}
		if !cfg.AllowedDomains["b.test"] {
			t.Errorf("AllowedDomains missing b.test: %v", cfg.AllowedDomains)
		}
		if cfg.PerHostDelay != 500*time.Millisecond {
			t.Errorf("PerHostDelay = %v, want 500ms", cfg.PerHostDelay)
		}
		if cfg.MaxConcurrency != 3 {
			t.Errorf("MaxConcurrency = %d, want 3", cfg.MaxConcurrency)
		}
		want := []string{FeatureDOM, FeatureGraph}
		for i, f := range want {
			if cfg.EnabledFeatures[i] != f {
				t.Errorf("EnabledFeatures[%d] = %q, want %q", i, cfg.EnabledFeatures[i], f)
			}
		}
	})

	t.Run("explicit zero depth survives", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("seeds: [http://a.test]\nmax_depth: 0\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		f, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		cfg, err := f.Apply(NewBuilder()).Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if cfg.MaxDepth != 0 {
			t.Errorf("MaxDepth = %d, want 0", cfg.MaxDepth)
		}
	})
}

// TestFindConfigFile tests config file discovery precedence.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("seeds: [http://a.test]\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile = %q, want %q", got, path)
		}
	})

	t.Run("explicit path missing returns empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}
