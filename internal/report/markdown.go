package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/canopy-crawler/canopy/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the crawl result in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeDomains(md, result)
	w.writeFailures(md, result)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + result.RunID + "`"},
			{"Seeds", "`" + strings.Join(result.Seeds, "`, `") + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", result.Elapsed().Round(timeRounding).String()},
		},
	})
	md.PlainText("")
}

// writeSummary writes the count summary table.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(result.VisitedCount)},
			{"Failures", strconv.Itoa(result.FailedCount)},
			{"Skipped", strconv.Itoa(result.SkippedCount)},
			{"Duplicates dropped", strconv.Itoa(result.DuplicatesDropped)},
			{"Malformed dropped", strconv.Itoa(result.MalformedDropped)},
			{"Distinct domains", strconv.Itoa(len(result.DomainPages))},
		},
	})
	md.PlainText("")
}

// writeDomains writes the per-domain page counts.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, result *model.CrawlResult) {
	if len(result.DomainPages) == 0 {
		return
	}
	md.H2("Pages per Domain")
	md.PlainText("")

	rows := make([][]string, 0, len(result.DomainPages))
	for _, host := range sortedDomains(result) {
		rows = append(rows, []string{"`" + host + "`", strconv.Itoa(result.DomainPages[host])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures lists failed addresses with their reasons.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.CrawlResult) {
	var items []string
	for _, o := range sortedOutcomes(result) {
		if o.Status != model.OutcomeFailure {
			continue
		}
		item := "`" + o.Address + "`"
		if o.Reason != "" {
			item += " - " + o.Reason
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}
