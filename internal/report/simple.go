package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/canopy-crawler/canopy/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose lists every outcome instead of only failures.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the full per-address outcome listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the crawl result as plain text.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var b strings.Builder

	b.WriteString("Crawl Report\n")
	b.WriteString("============\n\n")
	fmt.Fprintf(&b, "Run ID:      %s\n", result.RunID)
	fmt.Fprintf(&b, "Seeds:       %s\n", strings.Join(result.Seeds, ", "))
	fmt.Fprintf(&b, "Started:     %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Elapsed:     %s\n\n", result.Elapsed().Round(timeRounding))

	fmt.Fprintf(&b, "Pages crawled:      %d\n", result.VisitedCount)
	fmt.Fprintf(&b, "Failures:           %d\n", result.FailedCount)
	fmt.Fprintf(&b, "Skipped:            %d\n", result.SkippedCount)
	fmt.Fprintf(&b, "Duplicates dropped: %d\n", result.DuplicatesDropped)
	fmt.Fprintf(&b, "Malformed dropped:  %d\n\n", result.MalformedDropped)

	if len(result.DomainPages) > 0 {
		b.WriteString("Pages per domain\n")
		b.WriteString("----------------\n")
		for _, host := range sortedDomains(result) {
			fmt.Fprintf(&b, "  %-40s %d\n", host, result.DomainPages[host])
		}
		b.WriteString("\n")
	}

	w.writeOutcomes(&b, result)

	return w.output.Write([]byte(b.String()))
}

// writeOutcomes lists failures always, everything in verbose mode.
func (w *SimpleWriter) writeOutcomes(b *strings.Builder, result *model.CrawlResult) {
	var shown []*model.Outcome
	for _, o := range sortedOutcomes(result) {
		if w.verbose || o.Status == model.OutcomeFailure {
			shown = append(shown, o)
		}
	}
	if len(shown) == 0 {
		return
	}

	if w.verbose {
		b.WriteString("Outcomes\n")
		b.WriteString("--------\n")
	} else {
		b.WriteString("Failures\n")
		b.WriteString("--------\n")
	}
	for _, o := range shown {
		fmt.Fprintf(b, "  [%s] %s", o.Status, o.Address)
		if o.Reason != "" {
			fmt.Fprintf(b, " (%s)", o.Reason)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
