package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrMalformedAddress is returned when a link cannot be parsed or resolved
// into a crawlable address. This error is non-fatal: the engine drops the
// link and continues the crawl.
var ErrMalformedAddress = errors.New("malformed address")

// defaultPorts maps schemes to their default ports, which are stripped
// during normalization so that http://host:80/ and http://host/ share one
// canonical form.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Address is a normalized URL together with its parsed components.
// It is immutable once created; Key is the identity used by the
// deduplicator and the scope policy.
type Address struct {
	// Key is the canonical URL string. Two addresses with equal keys are
	// the same page for the lifetime of a crawl run.
	Key string

	// Scheme is the lowercase URL scheme (http or https).
	Scheme string

	// Host is the lowercase hostname without any default port.
	Host string

	// Path is the normalized path. Never empty; "/" for the root.
	Path string
}

// String returns the canonical URL string.
func (a Address) String() string { return a.Key }

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a.Key == "" }

// Normalizer canonicalizes raw link strings into Addresses.
//
// The zero value is not usable; construct with NewNormalizer.
type Normalizer struct {
	// sortQuery sorts query parameters by key. Off by default because
	// parameter order can affect served content.
	sortQuery bool

	// stripParams removes known tracking parameters (utm_*, gclid, ...).
	// Off by default because stripping changes dedup identity.
	stripParams bool
}

// trackingParams are query parameters that never affect page content and
// only serve analytics attribution. Removed when WithStripTracking is set.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"msclkid":      true,
	"igshid":       true,
	"_ga":          true,
	"_gid":         true,
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithSortQuery enables sorting of query parameters by key.
func WithSortQuery(sort bool) NormalizerOption {
	return func(n *Normalizer) {
		n.sortQuery = sort
	}
}

// WithStripTracking enables removal of tracking query parameters.
func WithStripTracking(strip bool) NormalizerOption {
	return func(n *Normalizer) {
		n.stripParams = strip
	}
}

// NewNormalizer creates a Normalizer with the given options.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize canonicalizes an absolute URL string into an Address.
// The input must carry a scheme and a host; anything else is a
// malformed address.
func (n *Normalizer) Normalize(raw string) (Address, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrMalformedAddress, raw, err)
	}
	return n.fromURL(u)
}

// Resolve canonicalizes a link reference against a base address.
// Relative references, ".." segments, and fragment-only links are
// resolved the way a browser would resolve them.
func (n *Normalizer) Resolve(base Address, ref string) (Address, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		// Fragment-only references address the current page.
		return Address{}, fmt.Errorf("%w: empty reference", ErrMalformedAddress)
	}

	// Non-navigational schemes are not crawlable.
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(strings.ToLower(ref), prefix) {
			return Address{}, fmt.Errorf("%w: unsupported scheme in %q", ErrMalformedAddress, ref)
		}
	}

	baseURL, err := url.Parse(base.Key)
	if err != nil {
		return Address{}, fmt.Errorf("%w: base %q: %v", ErrMalformedAddress, base.Key, err)
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrMalformedAddress, ref, err)
	}

	return n.fromURL(baseURL.ResolveReference(refURL))
}

// fromURL applies the canonicalization rules to a parsed URL.
func (n *Normalizer) fromURL(u *url.URL) (Address, error) {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Address{}, fmt.Errorf("%w: scheme %q", ErrMalformedAddress, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Address{}, fmt.Errorf("%w: missing host", ErrMalformedAddress)
	}

	// Keep non-default ports; they address a different server.
	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	hostport := host
	if port != "" {
		hostport = host + ":" + port
	}

	// The empty path and "/" address the same resource.
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	canonical := url.URL{
		Scheme:   scheme,
		Host:     hostport,
		Path:     path,
		RawQuery: n.normalizeQuery(u.RawQuery),
		// Fragment intentionally dropped: it never changes the response.
	}

	return Address{
		Key:    canonical.String(),
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}, nil
}

// normalizeQuery applies the configured query rules. With neither option
// set the query string passes through untouched, preserving order.
func (n *Normalizer) normalizeQuery(rawQuery string) string {
	if rawQuery == "" || (!n.sortQuery && !n.stripParams) {
		return rawQuery
	}

	// Split by hand rather than url.ParseQuery to preserve the relative
	// order of values when only stripping is requested.
	type pair struct{ key, raw string }
	pairs := make([]pair, 0, 8)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			key = part[:i]
		}
		if n.stripParams && trackingParams[strings.ToLower(key)] {
			continue
		}
		pairs = append(pairs, pair{key: key, raw: part})
	}

	if n.sortQuery {
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	}

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.raw
	}
	return strings.Join(parts, "&")
}
