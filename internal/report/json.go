package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/canopy-crawler/canopy/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON output.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the crawl result as JSON.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if w.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
