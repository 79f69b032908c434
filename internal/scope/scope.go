package scope

import (
	"sync"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// PriorityBonus is added to the score of entries on priority domains.
// Depth scores fall in (0, 1], so the bonus guarantees that every
// priority-domain entry dequeues before every ordinary entry.
const PriorityBonus = 2.0

// Rejection reasons reported in Decision.Reason and recorded on skipped
// outcomes.
const (
	ReasonOffDomain    = "host not in seed domains"
	ReasonNotAllowed   = "host not in whitelist"
	ReasonBlocked      = "host blocked"
	ReasonDomainBudget = "distinct host budget exhausted"
)

// Decision is the outcome of evaluating one address.
type Decision struct {
	// Admit reports whether the address is in scope.
	Admit bool

	// Score is the frontier score for admitted addresses.
	Score float64

	// Reason explains a rejection. Empty when Admit is true.
	Reason string
}

// Policy evaluates addresses against the configured crawl mode.
// Safe for concurrent use.
type Policy struct {
	mode      config.Mode
	seedHosts map[string]bool
	allowed   map[string]bool
	blocked   map[string]bool
	priority  map[string]bool

	maxDomains int

	mu      sync.Mutex
	counted map[string]bool
	pages   map[string]int
}

// NewPolicy builds a policy from a validated configuration. Seed hosts
// are derived from the normalized seed list.
func NewPolicy(cfg *config.Config) (*Policy, error) {
	seedHosts := make(map[string]bool, len(cfg.Seeds))
	n := urlutil.NewNormalizer()
	for _, s := range cfg.Seeds {
		a, err := n.Normalize(s)
		if err != nil {
			return nil, err
		}
		seedHosts[a.Host] = true
	}

	return &Policy{
		mode:       cfg.Mode,
		seedHosts:  seedHosts,
		allowed:    cfg.AllowedDomains,
		blocked:    cfg.BlockedDomains,
		priority:   cfg.PriorityDomains,
		maxDomains: cfg.MaxDomains,
		counted:    make(map[string]bool),
		pages:      make(map[string]int),
	}, nil
}

// Admit evaluates the address and, when admitted, commits its host
// against the distinct-host budget. Evaluation and commit share one
// critical section, so the budget holds under concurrent discovery.
func (p *Policy) Admit(addr urlutil.Address, depth int) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := p.evaluate(addr.Host, depth)
	if d.Admit {
		p.counted[addr.Host] = true
	}
	return d
}

// Evaluate reports what Admit would decide without committing anything.
func (p *Policy) Evaluate(addr urlutil.Address, depth int) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evaluate(addr.Host, depth)
}

// evaluate applies the mode matrix. Caller holds p.mu.
func (p *Policy) evaluate(host string, depth int) Decision {
	if p.blocked[host] {
		return Decision{Reason: ReasonBlocked}
	}

	switch p.mode {
	case config.ModeSingleDomain:
		if !p.seedHosts[host] {
			return Decision{Reason: ReasonOffDomain}
		}
	case config.ModeWhitelist:
		if !p.allowed[host] {
			return Decision{Reason: ReasonNotAllowed}
		}
	case config.ModeCrossDomain, config.ModeGraph:
		if !p.counted[host] && len(p.counted) >= p.maxDomains {
			return Decision{Reason: ReasonDomainBudget}
		}
	}

	return Decision{Admit: true, Score: p.score(host, depth)}
}

// score prefers shallow pages and boosts priority domains above every
// non-priority entry.
func (p *Policy) score(host string, depth int) float64 {
	s := 1.0 / float64(depth+1)
	if p.priority[host] {
		s += PriorityBonus
	}
	return s
}

// RecordPage counts one successfully fetched page for the host.
func (p *Policy) RecordPage(host string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[host]++
}

// DistinctHosts returns how many hosts have been admitted.
func (p *Policy) DistinctHosts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.counted)
}

// PageCounts returns a copy of the per-host page counters.
func (p *Policy) PageCounts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.pages))
	for h, c := range p.pages {
		out[h] = c
	}
	return out
}
