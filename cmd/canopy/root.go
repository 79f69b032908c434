package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for Canopy.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canopy",
		Short: "Polite, prioritized web crawler",
		Long: `Canopy crawls websites from one or more seed URLs, following links in
priority order while staying within configured scope, depth, and page
limits. Per-host rate limiting keeps the crawler polite; optional
features capture screenshots, extract page structure, download
stylesheets, and re-prioritize links as the crawl learns the site.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
