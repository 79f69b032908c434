// Package report renders crawl results for humans and tools: a plain
// text summary for terminals, JSON for programmatic processing, and
// Markdown for documentation and sharing.
package report
