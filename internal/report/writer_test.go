package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/canopy-crawler/canopy/internal/model"
)

func sampleResult() *model.CrawlResult {
	r := model.NewCrawlResult([]string{"http://a.test/"})
	r.RecordSuccess(&model.Outcome{Address: "http://a.test/", StatusCode: 200, Attempts: 1}, "a.test")
	r.RecordSuccess(&model.Outcome{Address: "http://a.test/page", StatusCode: 200, Depth: 1, Attempts: 1}, "a.test")
	r.RecordFailure(&model.Outcome{Address: "http://a.test/broken", Reason: "fetch failed", Depth: 1, Attempts: 3})
	r.RecordSkipped("http://other.test/", "http://a.test/", "host not in seed domains", 1)
	r.Finish()
	return r
}

// TestSimpleWriter tests the text rendering.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("default shows failures only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"Pages crawled:      2",
			"Failures:           1",
			"a.test",
			"http://a.test/broken",
			"fetch failed",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "http://a.test/page") {
			t.Error("non-verbose output lists successful pages")
		}
	})

	t.Run("verbose lists every outcome", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(sampleResult()); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		for _, want := range []string{"http://a.test/page", "http://other.test/", "skipped"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("verbose output missing %q", want)
			}
		}
	})
}

// TestJSONWriter tests that the JSON rendering round-trips.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded model.CrawlResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.VisitedCount != 2 || decoded.FailedCount != 1 {
		t.Errorf("decoded counts = %d/%d, want 2/1", decoded.VisitedCount, decoded.FailedCount)
	}
	if decoded.Outcomes["http://a.test/broken"].Reason != "fetch failed" {
		t.Errorf("decoded outcome = %+v", decoded.Outcomes["http://a.test/broken"])
	}
}

// TestMarkdownWriter tests the Markdown rendering.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report",
		"## Summary",
		"## Pages per Domain",
		"## Failures",
		"`a.test`",
		"`http://a.test/broken`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, md bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewMarkdownWriter(&md))
	if _, err := mw.Write(sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if text.Len() == 0 || md.Len() == 0 {
		t.Error("a writer received no output")
	}
}

// TestOpenOutput tests destination resolution.
func TestOpenOutput(t *testing.T) {
	t.Parallel()

	t.Run("empty means stdout", func(t *testing.T) {
		t.Parallel()

		w, closeFn, err := OpenOutput("")
		if err != nil {
			t.Fatalf("OpenOutput failed: %v", err)
		}
		if w != os.Stdout {
			t.Error("writer is not stdout")
		}
		if err := closeFn(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "reports", "run.md")
		w, closeFn, err := OpenOutput(path)
		if err != nil {
			t.Fatalf("OpenOutput failed: %v", err)
		}
		if _, err := w.Write([]byte("hello")); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil || string(data) != "hello" {
			t.Errorf("file content = %q, err = %v", data, err)
		}
	})
}
