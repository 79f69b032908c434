package feature

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/parser"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// Bonus constants for the link prioritizer. Bonuses stay within [0, 1]
// so they reorder same-depth entries without overriding the scope
// policy's priority-domain boost.
const (
	bonusBase      = 0.25
	bonusSameHost  = 0.2
	bonusHighExt   = 0.3
	bonusMediumExt = 0.15
	bonusHighPath  = 0.25
	penaltyLowPath = 0.25
	bonusPerDomRef = 0.01
	bonusDomRefCap = 0.25
	bonusVeto      = -1.0
)

// Extension classes, matched against the final path segment.
var (
	highPriorityExts = map[string]bool{
		"": true, ".html": true, ".htm": true, ".php": true,
		".asp": true, ".aspx": true, ".jsp": true,
	}
	mediumPriorityExts = map[string]bool{
		".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	}
	blockedExts = map[string]bool{
		".zip": true, ".exe": true, ".dmg": true, ".iso": true,
		".tar": true, ".gz": true,
	}
)

// Path substring classes. High-priority segments mark content pages;
// low-priority ones mark account machinery and machine endpoints.
var (
	highPriorityPaths = []string{
		"/blog/", "/news/", "/article/", "/post/", "/content/",
		"/research/", "/publications/", "/papers/", "/docs/",
	}
	lowPriorityPaths = []string{
		"/admin/", "/login/", "/register/", "/cart/", "/checkout/",
		"/api/", "/ajax/", "/json/", "/xml/",
	}
)

// Prioritizer re-scores the links of every crawled page with extension
// and path heuristics plus a per-domain reference count, and vetoes
// links to non-page payloads. Its discoveries feed the same admission
// path as ordinary parser links; the emitted bonus adjusts the frontier
// score of the admitted entry.
type Prioritizer struct {
	parser *parser.Parser

	mu         sync.Mutex
	domainRefs map[string]int
}

// NewPrioritizer creates the link prioritization stage.
func NewPrioritizer() *Prioritizer {
	return &Prioritizer{domainRefs: make(map[string]int)}
}

// Name implements Feature.
func (g *Prioritizer) Name() string { return config.FeatureGraph }

// Initialize wires the parser with the run's canonicalization options.
func (g *Prioritizer) Initialize(_ context.Context, cfg *config.Config) error {
	g.parser = parser.New(urlutil.NewNormalizer(
		urlutil.WithSortQuery(cfg.SortQueryParams),
		urlutil.WithStripTracking(cfg.StripTrackingParams),
	))
	return nil
}

// BeforeCrawl implements Feature.
func (g *Prioritizer) BeforeCrawl(context.Context) error { return nil }

// ProcessTask scores every link on the page.
func (g *Prioritizer) ProcessTask(_ context.Context, task *Task, doc *model.Document) *StageResult {
	if !doc.IsHTML() {
		return nil
	}

	parsed, err := g.parser.Parse(task.Address, bytes.NewReader(doc.Body))
	if err != nil {
		return &StageResult{Err: fmt.Errorf("parse %s: %w", task.Address.Key, err)}
	}

	g.countReferences(parsed.Links)

	result := &StageResult{}
	for _, link := range parsed.Links {
		result.Links = append(result.Links, Discovery{
			URL:   link.Key,
			Bonus: g.scoreLink(task.Address, link),
		})
	}
	return result
}

// Finalize implements Feature.
func (g *Prioritizer) Finalize(context.Context) error { return nil }

// countReferences bumps the per-domain reference counters.
func (g *Prioritizer) countReferences(links []urlutil.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, l := range links {
		g.domainRefs[l.Host]++
	}
}

// scoreLink computes the frontier bonus for one link, or bonusVeto for
// links that should not be crawled at all.
func (g *Prioritizer) scoreLink(source, link urlutil.Address) float64 {
	ext := strings.ToLower(path.Ext(link.Path))
	if blockedExts[ext] {
		return bonusVeto
	}

	bonus := bonusBase
	switch {
	case highPriorityExts[ext]:
		bonus += bonusHighExt
	case mediumPriorityExts[ext]:
		bonus += bonusMediumExt
	}

	if link.Host == source.Host {
		bonus += bonusSameHost
	}

	lower := strings.ToLower(link.Path)
	for _, p := range highPriorityPaths {
		if strings.Contains(lower, p) {
			bonus += bonusHighPath
			break
		}
	}
	for _, p := range lowPriorityPaths {
		if strings.Contains(lower, p) {
			bonus -= penaltyLowPath
			break
		}
	}

	bonus += g.domainBonus(link.Host)

	if bonus < 0 {
		bonus = 0
	}
	if bonus > 1 {
		bonus = 1
	}
	return bonus
}

// domainBonus rewards hosts the run keeps seeing references to.
func (g *Prioritizer) domainBonus(host string) float64 {
	g.mu.Lock()
	refs := g.domainRefs[host]
	g.mu.Unlock()

	b := float64(refs) * bonusPerDomRef
	if b > bonusDomRefCap {
		b = bonusDomRefCap
	}
	return b
}
