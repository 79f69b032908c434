package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus classifies what happened to one address during a run.
type OutcomeStatus string

const (
	// OutcomeSuccess means the address was fetched and processed.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeFailure means every allowed attempt failed.
	OutcomeFailure OutcomeStatus = "failure"

	// OutcomeSkipped means the address was discovered but never fetched
	// (scope rejection, page budget, cancellation).
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Artifact references one stored by-product of a task (page body,
// screenshot, DOM tree, stylesheet).
type Artifact struct {
	// Kind is the artifact category, e.g. "html" or "screenshot".
	Kind string `json:"kind"`

	// Path is the storage path as returned by the artifact store.
	// Opaque to the engine.
	Path string `json:"path"`
}

// Outcome is the final record for one address.
type Outcome struct {
	// Address is the canonical URL.
	Address string `json:"address"`

	// Status classifies the outcome.
	Status OutcomeStatus `json:"status"`

	// Reason explains skips and failures in one short phrase.
	Reason string `json:"reason,omitempty"`

	// StatusCode is the last HTTP status observed, when any fetch ran.
	StatusCode int `json:"status_code,omitempty"`

	// Depth is the link distance from the seeds.
	Depth int `json:"depth"`

	// Parent is the address this one was discovered from. Empty for seeds.
	Parent string `json:"parent,omitempty"`

	// Attempts is how many fetches were issued for this address.
	Attempts int `json:"attempts,omitempty"`

	// Artifacts references stored by-products of the task.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// CrawlResult aggregates a whole run. It grows monotonically while the
// run is active and is read-only afterwards. Recording methods are safe
// for concurrent use by the worker pool.
type CrawlResult struct {
	// RunID uniquely identifies this run in logs, the index database,
	// and reports.
	RunID string `json:"run_id"`

	// Seeds are the canonical seed addresses, in configured order.
	Seeds []string `json:"seeds"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Outcomes maps canonical address to its final record.
	Outcomes map[string]*Outcome `json:"outcomes"`

	// DomainPages counts successfully fetched pages per host.
	DomainPages map[string]int `json:"domain_pages"`

	// VisitedCount is the number of successfully fetched pages.
	VisitedCount int `json:"visited_count"`

	// FailedCount is the number of addresses whose attempts were exhausted.
	FailedCount int `json:"failed_count"`

	// SkippedCount is the number of addresses recorded as skipped.
	SkippedCount int `json:"skipped_count"`

	// DuplicatesDropped counts links rejected by the deduplicator.
	DuplicatesDropped int `json:"duplicates_dropped"`

	// MalformedDropped counts links that could not be normalized.
	MalformedDropped int `json:"malformed_dropped"`

	mu sync.Mutex
}

// NewCrawlResult creates an empty result for a fresh run.
func NewCrawlResult(seeds []string) *CrawlResult {
	return &CrawlResult{
		RunID:       uuid.NewString(),
		Seeds:       append([]string(nil), seeds...),
		StartedAt:   time.Now(),
		Outcomes:    make(map[string]*Outcome),
		DomainPages: make(map[string]int),
	}
}

// RecordSuccess records a completed fetch for an address.
func (r *CrawlResult) RecordSuccess(o *Outcome, host string) {
	o.Status = OutcomeSuccess

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes[o.Address] = o
	r.VisitedCount++
	r.DomainPages[host]++
}

// RecordFailure records an address whose attempts are exhausted.
func (r *CrawlResult) RecordFailure(o *Outcome) {
	o.Status = OutcomeFailure

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes[o.Address] = o
	r.FailedCount++
}

// RecordSkipped records an address that was discovered but never fetched.
// The first record wins; later skips of the same address only bump the
// counter when the address has no outcome yet.
func (r *CrawlResult) RecordSkipped(address, parent, reason string, depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Outcomes[address]; ok {
		return
	}
	r.Outcomes[address] = &Outcome{
		Address: address,
		Status:  OutcomeSkipped,
		Reason:  reason,
		Depth:   depth,
		Parent:  parent,
	}
	r.SkippedCount++
}

// AddDuplicate bumps the dropped-duplicate counter.
func (r *CrawlResult) AddDuplicate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DuplicatesDropped++
}

// AddMalformed bumps the dropped-malformed counter.
func (r *CrawlResult) AddMalformed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MalformedDropped++
}

// Visited returns the current successfully-fetched page count.
func (r *CrawlResult) Visited() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.VisitedCount
}

// DistinctDomains returns how many hosts produced at least one page.
func (r *CrawlResult) DistinctDomains() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.DomainPages)
}

// Finish stamps the end time.
func (r *CrawlResult) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
}

// Elapsed returns the run duration, using now when the run is unfinished.
func (r *CrawlResult) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
