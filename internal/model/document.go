package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// MaxBodyKeep is the hard ceiling on stored body bytes. The fetcher
// applies the configured limit while reading; this constant protects
// components that construct Documents directly.
const MaxBodyKeep = 10 * 1024 * 1024 // 10 MB

// Document is a fetched resource handed to the pipeline stages.
// The engine owns it for the lifetime of one task; stages read it but
// never mutate it.
type Document struct {
	// URL is the address that was requested, in canonical form.
	URL string `json:"url"`

	// FinalURL is the address after redirects. Equals URL when no
	// redirect occurred.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP response status.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header,
	// without parameters.
	ContentType string `json:"content_type"`

	// Headers are the response headers as received.
	Headers map[string][]string `json:"-"`

	// Body is the raw response body, truncated to the configured limit.
	Body []byte `json:"-"`

	// Hash is the SHA-256 of Body, hex encoded. Used for the artifact
	// path layout and change detection.
	Hash string `json:"hash"`

	// FetchedAt is when the response completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Elapsed is the fetch duration.
	Elapsed time.Duration `json:"elapsed"`
}

// ComputeHash fills Hash from the current Body.
func (d *Document) ComputeHash() {
	sum := sha256.Sum256(d.Body)
	d.Hash = hex.EncodeToString(sum[:])
}

// TruncateBody enforces the hard body ceiling.
func (d *Document) TruncateBody() {
	if len(d.Body) > MaxBodyKeep {
		d.Body = d.Body[:MaxBodyKeep]
	}
}

// IsHTML reports whether the document looks like an HTML page.
func (d *Document) IsHTML() bool {
	return strings.Contains(d.ContentType, "text/html") ||
		strings.Contains(d.ContentType, "application/xhtml")
}
