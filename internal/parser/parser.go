package parser

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// Parser extracts information from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
type Parser struct {
	normalizer *urlutil.Normalizer
}

// Result contains everything extracted from one HTML page.
//
// Design decision: We return a comprehensive result struct rather than
// multiple methods because:
//  1. Single parsing pass is more efficient
//  2. Related data can be collected together
//  3. Caller can choose what to use
type Result struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links are the resolved anchor targets, in document order, with
	// duplicates removed.
	Links []urlutil.Address

	// Stylesheets are resolved external stylesheet addresses
	// (<link rel="stylesheet">).
	Stylesheets []urlutil.Address

	// InlineCSS holds the contents of <style> blocks.
	InlineCSS []string

	// Scripts are resolved script source addresses.
	Scripts []urlutil.Address

	// Malformed counts references that could not be normalized.
	Malformed int
}

// New creates a parser that resolves references with the given
// normalizer, so parsed links share the crawl's canonical form.
func New(normalizer *urlutil.Normalizer) *Parser {
	return &Parser{normalizer: normalizer}
}

// Parse walks the HTML document and extracts links, title, stylesheet
// references, inline CSS, and script sources. References are resolved
// against base; unresolvable ones are counted, not returned.
func (p *Parser) Parse(base urlutil.Address, r io.Reader) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, base, result, seen)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles one HTML element node.
func (p *Parser) processElement(n *html.Node, base urlutil.Address, result *Result, seen map[string]bool) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			addr, ok := p.resolve(base, href, result)
			if ok && !seen[addr.Key] {
				seen[addr.Key] = true
				result.Links = append(result.Links, addr)
			}
		}

	case "link":
		if !isStylesheet(getAttr(n, "rel")) {
			return
		}
		if href := getAttr(n, "href"); href != "" {
			if addr, ok := p.resolve(base, href, result); ok {
				result.Stylesheets = append(result.Stylesheets, addr)
			}
		}

	case "style":
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			if css := strings.TrimSpace(n.FirstChild.Data); css != "" {
				result.InlineCSS = append(result.InlineCSS, css)
			}
		}

	case "script":
		if src := getAttr(n, "src"); src != "" {
			if addr, ok := p.resolve(base, src, result); ok {
				result.Scripts = append(result.Scripts, addr)
			}
		}
	}
}

// resolve canonicalizes one reference, counting malformed ones.
func (p *Parser) resolve(base urlutil.Address, ref string, result *Result) (urlutil.Address, bool) {
	addr, err := p.normalizer.Resolve(base, ref)
	if err != nil {
		if errors.Is(err, urlutil.ErrMalformedAddress) {
			result.Malformed++
		}
		return urlutil.Address{}, false
	}
	return addr, true
}

// isStylesheet reports whether a link rel attribute names a stylesheet.
// The rel attribute is a space-separated token list.
func isStylesheet(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "stylesheet" {
			return true
		}
	}
	return false
}

// getAttr returns the value of the named attribute, or empty.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
