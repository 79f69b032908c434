package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".canopy.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Duration wraps time.Duration so configuration files can write values
// like "500ms" or "2s". The yaml package has no native duration support.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// File mirrors the YAML configuration file layout. Zero values mean
// "keep the builder default", so a file only needs the keys it changes.
type File struct {
	Seeds []string `yaml:"seeds"`

	MaxPages   int    `yaml:"max_pages"`
	MaxDepth   *int   `yaml:"max_depth"`
	Mode       string `yaml:"mode"`
	MaxDomains int    `yaml:"max_domains"`

	AllowedDomains  []string `yaml:"allowed_domains"`
	BlockedDomains  []string `yaml:"blocked_domains"`
	PriorityDomains []string `yaml:"priority_domains"`

	Features []string `yaml:"features"`

	PerHostDelay   Duration `yaml:"per_host_delay"`
	MaxConcurrency int      `yaml:"max_concurrency"`
	PerTaskTimeout Duration `yaml:"per_task_timeout"`
	MaxAttempts    int      `yaml:"max_attempts"`

	UserAgent string `yaml:"user_agent"`

	SortQueryParams     bool `yaml:"sort_query_params"`
	StripTrackingParams bool `yaml:"strip_tracking_params"`

	OutputDir string `yaml:"output_dir"`
	IndexDir  string `yaml:"index_dir"`
}

// LoadFile reads a YAML configuration file. A missing file returns
// ErrConfigNotFound so callers can decide whether that is fatal (the path
// was explicit) or fine (the default location was probed).
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile locates the configuration file: an explicit path wins,
// then the current directory, then the home directory. Returns "" when
// nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Apply copies the file's non-zero settings onto a builder.
func (f *File) Apply(b *Builder) *Builder {
	if len(f.Seeds) > 0 {
		b.Seeds(f.Seeds...)
	}
	if f.MaxPages > 0 {
		b.MaxPages(f.MaxPages)
	}
	if f.MaxDepth != nil {
		b.MaxDepth(*f.MaxDepth)
	}
	if f.Mode != "" {
		b.Mode(Mode(f.Mode))
	}
	if f.MaxDomains > 0 {
		b.MaxDomains(f.MaxDomains)
	}
	if len(f.AllowedDomains) > 0 {
		b.AllowedDomains(f.AllowedDomains...)
	}
	if len(f.BlockedDomains) > 0 {
		b.BlockedDomains(f.BlockedDomains...)
	}
	if len(f.PriorityDomains) > 0 {
		b.PriorityDomains(f.PriorityDomains...)
	}
	for _, feat := range f.Features {
		b.WithFeature(feat)
	}
	if f.PerHostDelay > 0 {
		b.PerHostDelay(time.Duration(f.PerHostDelay))
	}
	if f.MaxConcurrency > 0 {
		b.MaxConcurrency(f.MaxConcurrency)
	}
	if f.PerTaskTimeout > 0 {
		b.PerTaskTimeout(time.Duration(f.PerTaskTimeout))
	}
	if f.MaxAttempts > 0 {
		b.MaxAttempts(f.MaxAttempts)
	}
	if f.UserAgent != "" {
		b.UserAgent(f.UserAgent)
	}
	if f.SortQueryParams {
		b.SortQueryParams(true)
	}
	if f.StripTrackingParams {
		b.StripTrackingParams(true)
	}
	if f.OutputDir != "" {
		b.OutputDir(f.OutputDir)
	}
	if f.IndexDir != "" {
		b.IndexDir(f.IndexDir)
	}
	return b
}
