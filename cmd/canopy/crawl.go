package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/crawler"
	"github.com/canopy-crawler/canopy/internal/log"
	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/report"
	"github.com/canopy-crawler/canopy/internal/storage"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <seed-url> [seed-url...]",
		Short: "Crawl one or more websites from seed URLs",
		Long: `Crawl fetches pages starting from the given seeds, following links in
priority order within the configured scope.

Crawl modes:
  single_domain  follow links only on the seed domains (default)
  cross_domain   follow links across up to --max-domains distinct hosts
  whitelist      follow links only on --allow domains
  graph          cross-domain crawling guided by the link prioritizer

Examples:
  # Crawl one site with defaults (100 pages, depth 3)
  canopy crawl https://example.com

  # Shallow, small crawl
  canopy crawl --max-pages 20 --max-depth 1 https://example.com

  # Whitelist crawl across two domains
  canopy crawl --mode whitelist --allow example.com --allow example.org https://example.com

  # Enable screenshots and DOM extraction
  canopy crawl --feature capture --feature dom https://example.com

  # Markdown report to a file
  canopy crawl --markdown --output report.md https://example.com

Configuration file (.canopy.yaml) example:
  seeds:
    - https://example.com
  max_pages: 50
  mode: whitelist
  allowed_domains:
    - example.com
  features:
    - dom
    - graph`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl limit flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seeds (0 = seeds only)")
	cmd.Flags().Int("max-domains", config.DefaultMaxDomains,
		"Maximum distinct hosts in cross-domain and graph modes")

	// Scope flags
	cmd.Flags().StringP("mode", "m", string(config.ModeSingleDomain),
		"Crawl mode: single_domain, cross_domain, whitelist, graph")
	cmd.Flags().StringArray("allow", nil,
		"Host allowed in whitelist mode (repeatable)")
	cmd.Flags().StringArray("block", nil,
		"Host never crawled in any mode (repeatable)")
	cmd.Flags().StringArray("priority", nil,
		"Host crawled before others at the same depth (repeatable)")

	// Politeness flags
	cmd.Flags().Duration("delay", config.DefaultPerHostDelay,
		"Minimum spacing between requests to one host")
	cmd.Flags().IntP("concurrency", "j", config.DefaultMaxConcurrency,
		"Maximum concurrent fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultPerTaskTimeout,
		"Timeout for one page (fetch plus processing)")
	cmd.Flags().Int("max-attempts", config.DefaultMaxAttempts,
		"Fetch attempts per page, counting the first try")

	// Feature flags
	cmd.Flags().StringArrayP("feature", "f", nil,
		"Enable a feature: capture, dom, css, graph (repeatable, order is pipeline order)")

	// Storage flags
	cmd.Flags().Bool("no-store", false,
		"Do not store fetched page bodies")
	cmd.Flags().String("output-dir", "",
		"Artifact directory (default: XDG data directory)")
	cmd.Flags().String("index-dir", "",
		"Enable the crawl index database in this directory")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .canopy.yaml in current or home directory)")

	// Report flags
	cmd.Flags().Bool("json", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	logger := log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Cancel the run on interrupt so in-flight pages drain and the
	// partial report still comes out.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	opts := []crawler.Option{crawler.WithLogger(logger)}
	if cfg.IndexDir != "" {
		idx, err := storage.OpenIndex(cfg.IndexDir)
		if err != nil {
			return fmt.Errorf("open crawl index: %w", err)
		}
		defer func() {
			if cerr := idx.Close(); cerr != nil {
				logger.Warn("close crawl index", slog.String("error", cerr.Error()))
			}
		}()
		opts = append(opts, crawler.WithIndex(idx))
	}

	engine, err := crawler.New(cfg, opts...)
	if err != nil {
		return err
	}

	result, crawlErr := engine.Crawl(ctx)
	if result != nil {
		if werr := writeReport(cmd, result); werr != nil {
			return werr
		}
	}

	// An interrupted run still produced a report; exit cleanly.
	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		return crawlErr
	}
	return nil
}

// buildConfig assembles the crawl configuration: config file first,
// then flags on top, seeds from arguments last.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	b := config.NewBuilder()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if found := config.FindConfigFile(configPath); found != "" {
		f, err := config.LoadFile(found)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", found, err)
		}
		f.Apply(b)
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if err := applyFlags(cmd, b); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		b.Seeds(args...)
	}

	return b.Build()
}

// applyFlags copies changed flag values onto the builder so flags win
// over the config file but never clobber it with defaults.
func applyFlags(cmd *cobra.Command, b *config.Builder) error {
	flags := cmd.Flags()

	if flags.Changed("max-pages") {
		v, err := flags.GetInt("max-pages")
		if err != nil {
			return err
		}
		b.MaxPages(v)
	}
	if flags.Changed("max-depth") {
		v, err := flags.GetInt("max-depth")
		if err != nil {
			return err
		}
		b.MaxDepth(v)
	}
	if flags.Changed("max-domains") {
		v, err := flags.GetInt("max-domains")
		if err != nil {
			return err
		}
		b.MaxDomains(v)
	}
	if flags.Changed("mode") {
		v, err := flags.GetString("mode")
		if err != nil {
			return err
		}
		b.Mode(config.Mode(v))
	}
	if flags.Changed("allow") {
		v, err := flags.GetStringArray("allow")
		if err != nil {
			return err
		}
		b.AllowedDomains(v...)
	}
	if flags.Changed("block") {
		v, err := flags.GetStringArray("block")
		if err != nil {
			return err
		}
		b.BlockedDomains(v...)
	}
	if flags.Changed("priority") {
		v, err := flags.GetStringArray("priority")
		if err != nil {
			return err
		}
		b.PriorityDomains(v...)
	}
	if flags.Changed("delay") {
		v, err := flags.GetDuration("delay")
		if err != nil {
			return err
		}
		b.PerHostDelay(v)
	}
	if flags.Changed("concurrency") {
		v, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		b.MaxConcurrency(v)
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		b.PerTaskTimeout(v)
	}
	if flags.Changed("max-attempts") {
		v, err := flags.GetInt("max-attempts")
		if err != nil {
			return err
		}
		b.MaxAttempts(v)
	}
	if flags.Changed("feature") {
		v, err := flags.GetStringArray("feature")
		if err != nil {
			return err
		}
		for _, name := range v {
			b.WithFeature(name)
		}
	}
	if flags.Changed("no-store") {
		v, err := flags.GetBool("no-store")
		if err != nil {
			return err
		}
		b.StoreHTML(!v)
	}
	if flags.Changed("output-dir") {
		v, err := flags.GetString("output-dir")
		if err != nil {
			return err
		}
		b.OutputDir(v)
	}
	if flags.Changed("index-dir") {
		v, err := flags.GetString("index-dir")
		if err != nil {
			return err
		}
		b.IndexDir(v)
	}
	return nil
}

// writeReport renders the result in the requested format.
func writeReport(cmd *cobra.Command, result *model.CrawlResult) error {
	flags := cmd.Flags()

	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	mdOut, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && mdOut {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return err
	}

	out, closeFn, err := report.OpenOutput(outputPath)
	if err != nil {
		return err
	}

	var w report.Writer
	switch {
	case jsonOut:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case mdOut:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(verbose))
	}

	if _, err := w.Write(result); err != nil {
		_ = closeFn()
		return fmt.Errorf("write report: %w", err)
	}
	return closeFn()
}
