// Package parser extracts structural information from HTML pages:
// links for the crawl frontier, the page title, stylesheet references,
// inline CSS, and script sources.
package parser
