package feature

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/parser"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// StylesheetFetcher retrieves one document. Satisfied by
// fetch.HTTPFetcher; kept as a local interface so the stage can be
// tested without a network.
type StylesheetFetcher interface {
	Fetch(ctx context.Context, addr urlutil.Address) (*model.Document, error)
}

// CSSDownloader stores every stylesheet a crawled page references:
// external sheets are fetched once per run, inline blocks are stored
// per page.
type CSSDownloader struct {
	store   ArtifactStore
	fetcher StylesheetFetcher
	parser  *parser.Parser

	mu      sync.Mutex
	fetched map[string]string // stylesheet URL -> stored path
}

// NewCSSDownloader creates the stylesheet download stage.
func NewCSSDownloader(store ArtifactStore, fetcher StylesheetFetcher) *CSSDownloader {
	return &CSSDownloader{
		store:   store,
		fetcher: fetcher,
		fetched: make(map[string]string),
	}
}

// Name implements Feature.
func (c *CSSDownloader) Name() string { return config.FeatureCSS }

// Initialize wires the parser with the run's canonicalization options
// so stylesheet URLs dedup the same way page URLs do.
func (c *CSSDownloader) Initialize(_ context.Context, cfg *config.Config) error {
	c.parser = parser.New(urlutil.NewNormalizer(
		urlutil.WithSortQuery(cfg.SortQueryParams),
		urlutil.WithStripTracking(cfg.StripTrackingParams),
	))
	return nil
}

// BeforeCrawl implements Feature.
func (c *CSSDownloader) BeforeCrawl(context.Context) error { return nil }

// ProcessTask downloads the page's external stylesheets and stores its
// inline CSS. Individual sheet failures are collected into one stage
// error; the artifacts that did succeed are still reported.
func (c *CSSDownloader) ProcessTask(ctx context.Context, task *Task, doc *model.Document) *StageResult {
	if !doc.IsHTML() {
		return nil
	}

	parsed, err := c.parser.Parse(task.Address, bytes.NewReader(doc.Body))
	if err != nil {
		return &StageResult{Err: fmt.Errorf("parse %s: %w", task.Address.Key, err)}
	}

	result := &StageResult{}
	var failed int
	for _, sheet := range parsed.Stylesheets {
		path, err := c.download(ctx, sheet)
		if err != nil {
			failed++
			continue
		}
		if path != "" {
			result.Artifacts = append(result.Artifacts, model.Artifact{Kind: "css", Path: path})
		}
	}

	for i, css := range parsed.InlineCSS {
		sum := sha256.Sum256([]byte(css))
		path, err := c.store.Store("css", task.Address.Host,
			fmt.Sprintf("%s-inline-%d", hex.EncodeToString(sum[:8]), i), "css", []byte(css))
		if err != nil {
			return &StageResult{Err: fmt.Errorf("store inline css: %w", err), Fatal: true}
		}
		result.Artifacts = append(result.Artifacts, model.Artifact{Kind: "css", Path: path})
	}

	if failed > 0 {
		result.Err = fmt.Errorf("%d of %d stylesheets failed for %s",
			failed, len(parsed.Stylesheets), task.Address.Key)
	}
	return result
}

// download fetches one stylesheet unless an earlier page already did.
// Returns the stored path, or empty when the sheet was stored before.
func (c *CSSDownloader) download(ctx context.Context, sheet urlutil.Address) (string, error) {
	c.mu.Lock()
	if _, ok := c.fetched[sheet.Key]; ok {
		c.mu.Unlock()
		return "", nil
	}
	// Reserve before fetching so concurrent tasks referencing the same
	// sheet do not fetch it twice.
	c.fetched[sheet.Key] = ""
	c.mu.Unlock()

	doc, err := c.fetcher.Fetch(ctx, sheet)
	if err != nil {
		c.mu.Lock()
		delete(c.fetched, sheet.Key)
		c.mu.Unlock()
		return "", err
	}

	path, err := c.store.Store("css", sheet.Host, doc.Hash, "css", doc.Body)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.fetched[sheet.Key] = path
	c.mu.Unlock()
	return path, nil
}

// Finalize implements Feature.
func (c *CSSDownloader) Finalize(context.Context) error { return nil }
