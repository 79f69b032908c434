// Package fetch retrieves documents over HTTP.
//
// The Fetcher interface is the seam the engine and the stylesheet
// feature depend on; HTTPFetcher is the production implementation.
// Non-2xx responses and transport failures are FetchErrors, which the
// engine treats as retryable.
package fetch
