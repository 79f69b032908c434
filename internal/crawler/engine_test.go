package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// fakeFetcher serves canned pages keyed by canonical URL and records
// fetch order.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	fails     map[string]int    // remaining failures per URL
	redirects map[string]string // requested URL -> final URL
	order     []string
}

func (f *fakeFetcher) Fetch(_ context.Context, addr urlutil.Address) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := f.fails[addr.Key]; n > 0 {
		f.fails[addr.Key] = n - 1
		return nil, fmt.Errorf("transient: %s", addr.Key)
	}

	final := addr.Key
	if target, ok := f.redirects[addr.Key]; ok {
		final = target
	}
	body, ok := f.pages[final]
	if !ok {
		return nil, fmt.Errorf("no such page: %s", addr.Key)
	}
	f.order = append(f.order, addr.Key)

	doc := &model.Document{
		URL:         addr.Key,
		FinalURL:    final,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        []byte(body),
		FetchedAt:   time.Now(),
	}
	doc.ComputeHash()
	return doc, nil
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func fastBuilder(seeds ...string) *config.Builder {
	return config.NewBuilder(seeds...).
		PerHostDelay(0).
		RetryBackoff(time.Millisecond).
		StoreHTML(false)
}

func runEngine(t *testing.T, b *config.Builder, f *fakeFetcher) (*model.CrawlResult, error) {
	t.Helper()
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("config Build failed: %v", err)
	}
	e, err := New(cfg, WithFetcher(f))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	result, crawlErr := e.Crawl(context.Background())
	if result == nil {
		t.Fatal("Crawl returned nil result")
	}
	return result, crawlErr
}

// TestCrawlSingleDomain tests a three-page crawl: links followed,
// duplicates dropped, the off-domain link skipped.
func TestCrawlSingleDomain(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/": `<html><body>
			<a href="/one">one</a>
			<a href="/two">two</a>
			<a href="http://other.test/">away</a>
		</body></html>`,
		"http://a.test/one": `<html><body><a href="/two">two again</a></body></html>`,
		"http://a.test/two": `<html><body><a href="/">home</a></body></html>`,
	}}

	result, err := runEngine(t, fastBuilder("http://a.test"), f)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if result.VisitedCount != 3 {
		t.Errorf("VisitedCount = %d, want 3", result.VisitedCount)
	}
	for _, url := range []string{"http://a.test/", "http://a.test/one", "http://a.test/two"} {
		o := result.Outcomes[url]
		if o == nil || o.Status != model.OutcomeSuccess {
			t.Errorf("outcome for %s = %+v, want success", url, o)
		}
	}

	// /two is linked from / and /one; / links itself via /two.
	if result.DuplicatesDropped == 0 {
		t.Error("DuplicatesDropped = 0, want > 0")
	}

	other := result.Outcomes["http://other.test/"]
	if other == nil || other.Status != model.OutcomeSkipped {
		t.Fatalf("off-domain outcome = %+v, want skipped", other)
	}
	if other.Parent != "http://a.test/" {
		t.Errorf("off-domain parent = %q, want seed", other.Parent)
	}
}

// TestCrawlPageBudget tests that visited never exceeds MaxPages and
// unfetched admissions are recorded as skipped.
func TestCrawlPageBudget(t *testing.T) {
	t.Parallel()

	pages := map[string]string{"http://a.test/": `<html><body>
		<a href="/p1">1</a><a href="/p2">2</a><a href="/p3">3</a>
		<a href="/p4">4</a><a href="/p5">5</a>
	</body></html>`}
	for i := 1; i <= 5; i++ {
		pages[fmt.Sprintf("http://a.test/p%d", i)] = "<html><body>leaf</body></html>"
	}
	f := &fakeFetcher{pages: pages}

	result, err := runEngine(t, fastBuilder("http://a.test").MaxPages(3).MaxConcurrency(1), f)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if result.VisitedCount != 3 {
		t.Errorf("VisitedCount = %d, want 3", result.VisitedCount)
	}
	var budgetSkips int
	for _, o := range result.Outcomes {
		if o.Status == model.OutcomeSkipped && o.Reason == reasonPageBudget {
			budgetSkips++
		}
	}
	if budgetSkips != 3 {
		t.Errorf("budget skips = %d, want 3", budgetSkips)
	}
}

// TestCrawlMaxDepth tests that links beyond the depth limit are skipped.
func TestCrawlMaxDepth(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/":   `<html><body><a href="/d1">next</a></body></html>`,
		"http://a.test/d1": `<html><body><a href="/d2">next</a></body></html>`,
		"http://a.test/d2": `<html><body><a href="/d3">too deep</a></body></html>`,
	}}

	result, err := runEngine(t, fastBuilder("http://a.test").MaxDepth(2), f)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if result.VisitedCount != 3 {
		t.Errorf("VisitedCount = %d, want 3", result.VisitedCount)
	}
	deep := result.Outcomes["http://a.test/d3"]
	if deep == nil || deep.Status != model.OutcomeSkipped || deep.Reason != reasonDepthLimit {
		t.Errorf("depth-3 outcome = %+v, want depth-limit skip", deep)
	}
}

// TestCrawlCrossDomainBudget tests the distinct-host cap in
// cross-domain mode.
func TestCrawlCrossDomainBudget(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/": `<html><body>
			<a href="http://b.test/">b</a>
			<a href="http://c.test/">c</a>
		</body></html>`,
		"http://b.test/": "<html><body>b</body></html>",
		"http://c.test/": "<html><body>c</body></html>",
	}}

	result, err := runEngine(t, fastBuilder("http://a.test").
		Mode(config.ModeCrossDomain).
		MaxDomains(2).
		MaxConcurrency(1), f)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	if got := result.DistinctDomains(); got != 2 {
		t.Errorf("DistinctDomains = %d, want 2", got)
	}
	if result.VisitedCount != 2 {
		t.Errorf("VisitedCount = %d, want 2", result.VisitedCount)
	}
	var budgetSkips int
	for _, o := range result.Outcomes {
		if o.Status == model.OutcomeSkipped {
			budgetSkips++
		}
	}
	if budgetSkips != 1 {
		t.Errorf("skipped outcomes = %d, want 1", budgetSkips)
	}
}

// TestCrawlPriorityDomains tests that priority-domain entries are
// fetched before same-depth ordinary entries.
func TestCrawlPriorityDomains(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/": `<html><body>
			<a href="http://plain.test/">plain</a>
			<a href="http://vip.test/">vip</a>
		</body></html>`,
		"http://plain.test/": "<html><body>plain</body></html>",
		"http://vip.test/":   "<html><body>vip</body></html>",
	}}

	result, err := runEngine(t, fastBuilder("http://a.test").
		Mode(config.ModeCrossDomain).
		MaxDomains(10).
		PriorityDomains("vip.test").
		MaxConcurrency(1), f)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if result.VisitedCount != 3 {
		t.Fatalf("VisitedCount = %d, want 3", result.VisitedCount)
	}

	order := f.fetched()
	vipIdx, plainIdx := -1, -1
	for i, url := range order {
		switch url {
		case "http://vip.test/":
			vipIdx = i
		case "http://plain.test/":
			plainIdx = i
		}
	}
	if vipIdx == -1 || plainIdx == -1 || vipIdx > plainIdx {
		t.Errorf("fetch order = %v, want vip before plain", order)
	}
}

// TestCrawlRetries tests that transient failures are retried and the
// attempt count lands on the outcome.
func TestCrawlRetries(t *testing.T) {
	t.Parallel()

	t.Run("recovers within budget", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{
			pages: map[string]string{"http://a.test/": "<html><body>ok</body></html>"},
			fails: map[string]int{"http://a.test/": 2},
		}

		result, err := runEngine(t, fastBuilder("http://a.test"), f)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		o := result.Outcomes["http://a.test/"]
		if o == nil || o.Status != model.OutcomeSuccess {
			t.Fatalf("outcome = %+v, want success", o)
		}
		if o.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", o.Attempts)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{
			pages: map[string]string{},
			fails: map[string]int{"http://a.test/": 100},
		}

		result, err := runEngine(t, fastBuilder("http://a.test"), f)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		o := result.Outcomes["http://a.test/"]
		if o == nil || o.Status != model.OutcomeFailure {
			t.Fatalf("outcome = %+v, want failure", o)
		}
		if o.Attempts != config.DefaultMaxAttempts {
			t.Errorf("Attempts = %d, want %d", o.Attempts, config.DefaultMaxAttempts)
		}
		if result.VisitedCount != 0 {
			t.Errorf("VisitedCount = %d, want 0", result.VisitedCount)
		}
	})
}

// poisonStore fails any artifact whose payload carries the poison
// marker and stores everything else.
type poisonStore struct{}

func (poisonStore) Store(kind, domain, hash, ext string, data []byte) (string, error) {
	if bytes.Contains(data, []byte("poison")) {
		return "", errors.New("disk gone")
	}
	return fmt.Sprintf("%s/%s_%s.%s", kind, domain, hash, ext), nil
}

// TestCrawlFatalStageFailsOnlyTask tests that a fatal stage result
// fails its own task while sibling tasks crawl to completion.
func TestCrawlFatalStageFailsOnlyTask(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/": `<html><body>
			<a href="/one">one</a>
			<a href="/two">two</a>
		</body></html>`,
		"http://a.test/one": `<html><body><div class="poison">bad</div></body></html>`,
		"http://a.test/two": `<html><body>fine</body></html>`,
	}}

	cfg, err := fastBuilder("http://a.test").
		WithDOMExtraction().
		MaxConcurrency(1).
		Build()
	if err != nil {
		t.Fatalf("config Build failed: %v", err)
	}
	e, err := New(cfg, WithFetcher(f), WithStore(poisonStore{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, crawlErr := e.Crawl(context.Background())
	if crawlErr != nil {
		t.Fatalf("Crawl failed: %v", crawlErr)
	}
	if e.State() != StateDone {
		t.Errorf("State = %v, want done", e.State())
	}

	if result.VisitedCount != 2 {
		t.Errorf("VisitedCount = %d, want 2", result.VisitedCount)
	}
	one := result.Outcomes["http://a.test/one"]
	if one == nil || one.Status != model.OutcomeFailure {
		t.Fatalf("aborted outcome = %+v, want failure", one)
	}
	if !strings.Contains(one.Reason, "dom") {
		t.Errorf("reason = %q, want the failing stage named", one.Reason)
	}
	two := result.Outcomes["http://a.test/two"]
	if two == nil || two.Status != model.OutcomeSuccess {
		t.Errorf("sibling outcome = %+v, want success", two)
	}
}

// TestCrawlRedirectBase tests that links on a redirected page resolve
// against the final URL rather than the requested one.
func TestCrawlRedirectBase(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		pages: map[string]string{
			"http://a.test/":           `<html><body><a href="/docs">docs</a></body></html>`,
			"http://a.test/docs/":      `<html><body><a href="guide">guide</a></body></html>`,
			"http://a.test/docs/guide": `<html><body>leaf</body></html>`,
		},
		redirects: map[string]string{"http://a.test/docs": "http://a.test/docs/"},
	}

	result, err := runEngine(t, fastBuilder("http://a.test"), f)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	guide := result.Outcomes["http://a.test/docs/guide"]
	if guide == nil || guide.Status != model.OutcomeSuccess {
		t.Errorf("outcome for /docs/guide = %+v, want success", guide)
	}
	if _, ok := result.Outcomes["http://a.test/guide"]; ok {
		t.Error("relative link resolved against the pre-redirect address")
	}
	if result.VisitedCount != 3 {
		t.Errorf("VisitedCount = %d, want 3", result.VisitedCount)
	}
}

// drainWatchFetcher watches the engine state while its fetch holds the
// only in-flight task.
type drainWatchFetcher struct {
	engine      *Engine
	sawDraining bool
}

func (f *drainWatchFetcher) Fetch(_ context.Context, addr urlutil.Address) (*model.Document, error) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.engine.State() == StateDraining {
			f.sawDraining = true
			break
		}
		time.Sleep(time.Millisecond)
	}

	doc := &model.Document{
		URL:         addr.Key,
		FinalURL:    addr.Key,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        []byte("<html><body>done</body></html>"),
		FetchedAt:   time.Now(),
	}
	doc.ComputeHash()
	return doc, nil
}

// TestCrawlDrainsOnEmptyFrontier tests that the engine reports the
// draining state while the frontier is empty with a task in flight.
func TestCrawlDrainsOnEmptyFrontier(t *testing.T) {
	t.Parallel()

	cfg, err := fastBuilder("http://a.test").MaxConcurrency(1).Build()
	if err != nil {
		t.Fatalf("config Build failed: %v", err)
	}
	f := &drainWatchFetcher{}
	e, err := New(cfg, WithFetcher(f))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.engine = e

	if _, err := e.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if !f.sawDraining {
		t.Error("engine never entered draining while a task was in flight")
	}
	if e.State() != StateDone {
		t.Errorf("State = %v, want done", e.State())
	}
}

// TestCrawlStateMachine tests lifecycle states and single-use
// enforcement.
func TestCrawlStateMachine(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/": "<html><body>done</body></html>",
	}}
	cfg, err := fastBuilder("http://a.test").Build()
	if err != nil {
		t.Fatalf("config Build failed: %v", err)
	}
	e, err := New(cfg, WithFetcher(f))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if e.State() != StateIdle {
		t.Errorf("State = %v, want idle", e.State())
	}
	if _, err := e.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if e.State() != StateDone {
		t.Errorf("State = %v, want done", e.State())
	}
	if _, err := e.Crawl(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Crawl error = %v, want ErrAlreadyRunning", err)
	}
}

// TestCrawlCancellation tests that cancelling the context ends the run
// with the context error and a failed state.
func TestCrawlCancellation(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"http://a.test/": "<html><body><a href='/next'>n</a></body></html>",
	}}
	cfg, err := fastBuilder("http://a.test").PerHostDelay(time.Hour).Build()
	if err != nil {
		t.Fatalf("config Build failed: %v", err)
	}
	e, err := New(cfg, WithFetcher(f))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, crawlErr := e.Crawl(ctx)
	if crawlErr == nil {
		t.Error("Crawl returned nil error after cancellation")
	}
	if result == nil {
		t.Fatal("Crawl returned nil result")
	}
	if e.State() != StateFailed {
		t.Errorf("State = %v, want failed", e.State())
	}
}

// TestCrawlHTTPIntegration tests the engine against a real HTTP server
// with the production fetcher.
func TestCrawlHTTPIntegration(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/page">page</a></body></html>`)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	})

	cfg, err := config.NewBuilder(srv.URL).
		PerHostDelay(0).
		RetryBackoff(time.Millisecond).
		StoreHTML(true).
		OutputDir(t.TempDir()).
		Build()
	if err != nil {
		t.Fatalf("config Build failed: %v", err)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := e.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if result.VisitedCount != 2 {
		t.Errorf("VisitedCount = %d, want 2", result.VisitedCount)
	}
	for _, o := range result.Outcomes {
		if o.Status != model.OutcomeSuccess {
			continue
		}
		if len(o.Artifacts) == 0 || o.Artifacts[0].Kind != "html" {
			t.Errorf("outcome %s missing html artifact: %+v", o.Address, o.Artifacts)
		}
	}
}
