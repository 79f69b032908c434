package frontier

import "sync"

// Dedup tracks which canonical addresses have already been admitted to
// the frontier. Admission is check-and-insert under one lock, so when
// several workers discover the same address concurrently exactly one of
// them wins.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedup creates an empty deduplicator.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Admit records the key and reports whether this call was the first to
// see it. Only the caller that receives true may push the address.
func (d *Dedup) Admit(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Seen reports whether the key was ever admitted, without recording it.
func (d *Dedup) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok
}

// Len returns the number of admitted keys.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
