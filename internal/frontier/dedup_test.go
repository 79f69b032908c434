package frontier

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// TestDedupAdmit tests single-admission semantics.
func TestDedupAdmit(t *testing.T) {
	t.Parallel()

	d := NewDedup()
	if !d.Admit("http://a.test/") {
		t.Error("first Admit = false, want true")
	}
	if d.Admit("http://a.test/") {
		t.Error("second Admit = true, want false")
	}
	if !d.Seen("http://a.test/") {
		t.Error("Seen = false after Admit")
	}
	if d.Seen("http://b.test/") {
		t.Error("Seen = true for never-admitted key")
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

// TestDedupConcurrentAdmit tests that exactly one goroutine wins
// admission for each key when many race on the same keys.
func TestDedupConcurrentAdmit(t *testing.T) {
	t.Parallel()

	const (
		workers = 16
		keys    = 100
	)

	d := NewDedup()
	wins := make([]atomic.Int32, keys)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				if d.Admit(fmt.Sprintf("http://a.test/page-%d", k)) {
					wins[k].Add(1)
				}
			}
		}()
	}
	wg.Wait()

	for k := range wins {
		if got := wins[k].Load(); got != 1 {
			t.Errorf("key %d admitted %d times, want exactly 1", k, got)
		}
	}
	if d.Len() != keys {
		t.Errorf("Len() = %d, want %d", d.Len(), keys)
	}
}
