package parser

import (
	"strings"
	"testing"

	"github.com/canopy-crawler/canopy/internal/urlutil"
)

func base(t *testing.T) urlutil.Address {
	t.Helper()
	a, err := urlutil.NewNormalizer().Normalize("http://example.test/dir/page.html")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return a
}

// TestParse tests extraction of title, links, stylesheets, inline CSS,
// and scripts from one page.
func TestParse(t *testing.T) {
	t.Parallel()

	const page = `<!DOCTYPE html>
<html>
<head>
<title> Example Page </title>
<link rel="stylesheet" href="/css/main.css">
<link rel="icon" href="/favicon.ico">
<style>body { margin: 0; }</style>
<script src="app.js"></script>
</head>
<body>
<a href="/about">About</a>
<a href="other.html">Other</a>
<a href="http://elsewhere.test/page">Elsewhere</a>
<a href="#section">Fragment only</a>
<a href="mailto:someone@example.test">Mail</a>
<a href="/about">About again</a>
</body>
</html>`

	p := New(urlutil.NewNormalizer())
	result, err := p.Parse(base(t), strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if result.Title != "Example Page" {
		t.Errorf("Title = %q, want %q", result.Title, "Example Page")
	}

	wantLinks := []string{
		"http://example.test/about",
		"http://example.test/dir/other.html",
		"http://elsewhere.test/page",
	}
	if len(result.Links) != len(wantLinks) {
		t.Fatalf("Links = %v, want %d entries", result.Links, len(wantLinks))
	}
	for i, want := range wantLinks {
		if result.Links[i].Key != want {
			t.Errorf("Links[%d] = %q, want %q", i, result.Links[i].Key, want)
		}
	}

	if len(result.Stylesheets) != 1 || result.Stylesheets[0].Path != "/css/main.css" {
		t.Errorf("Stylesheets = %v, want one /css/main.css", result.Stylesheets)
	}
	if len(result.InlineCSS) != 1 || !strings.Contains(result.InlineCSS[0], "margin") {
		t.Errorf("InlineCSS = %v, want one style block", result.InlineCSS)
	}
	if len(result.Scripts) != 1 || result.Scripts[0].Path != "/dir/app.js" {
		t.Errorf("Scripts = %v, want one /dir/app.js", result.Scripts)
	}

	// The fragment-only and mailto references are malformed for crawl
	// purposes.
	if result.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", result.Malformed)
	}
}

// TestParseMalformedHTML tests that badly nested markup still yields
// its links.
func TestParseMalformedHTML(t *testing.T) {
	t.Parallel()

	const page = `<html><body><p><a href="/one">one<div><a href="/two">two</body>`

	p := New(urlutil.NewNormalizer())
	result, err := p.Parse(base(t), strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Links) != 2 {
		t.Errorf("Links = %v, want 2 entries", result.Links)
	}
}

// TestParseEmptyPage tests that a page without links produces an empty
// result rather than an error.
func TestParseEmptyPage(t *testing.T) {
	t.Parallel()

	p := New(urlutil.NewNormalizer())
	result, err := p.Parse(base(t), strings.NewReader("<html><body>plain text</body></html>"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Links) != 0 || result.Title != "" {
		t.Errorf("Result = %+v, want empty", result)
	}
}

// TestIsStylesheet tests rel attribute token matching.
func TestIsStylesheet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want bool
	}{
		{"stylesheet", true},
		{"STYLESHEET", true},
		{"alternate stylesheet", true},
		{"icon", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isStylesheet(tt.rel); got != tt.want {
			t.Errorf("isStylesheet(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
