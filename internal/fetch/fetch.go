package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// Fetcher retrieves one document. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, addr urlutil.Address) (*model.Document, error)
}

// FetchError reports a failed retrieval. The engine retries addresses
// that fail with a FetchError until the attempt budget runs out.
type FetchError struct {
	// URL is the address that failed.
	URL string

	// StatusCode is the HTTP status, or zero for transport failures.
	StatusCode int

	// Err is the underlying cause, nil for plain HTTP error statuses.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// HTTPFetcher fetches documents with net/http.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithClient replaces the underlying HTTP client. Used by tests and by
// callers that need custom transports.
func WithClient(c *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// NewHTTPFetcher creates a fetcher that sends the given User-Agent and
// truncates bodies at maxBodySize bytes.
func NewHTTPFetcher(userAgent string, maxBodySize int64, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			// Per-task timeouts come from the caller's context; this is
			// a safety net against a leaked fetch outliving its task.
			Timeout: 2 * time.Minute,
		},
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the address. Redirects are followed by the client;
// the document records the final URL so callers can resolve relative
// links against the page that actually answered.
func (f *HTTPFetcher) Fetch(ctx context.Context, addr urlutil.Address) (*model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.Key, nil)
	if err != nil {
		return nil, &FetchError{URL: addr.Key, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: addr.Key, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused, then fail.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &FetchError{URL: addr.Key, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: addr.Key, StatusCode: resp.StatusCode, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}

	finalURL := addr.Key
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	doc := &model.Document{
		URL:         addr.Key,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Headers:     resp.Header,
		Body:        body,
		FetchedAt:   start,
		Elapsed:     time.Since(start),
	}
	doc.TruncateBody()
	doc.ComputeHash()
	return doc, nil
}
