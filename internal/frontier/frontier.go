package frontier

import (
	"container/heap"
	"errors"
	"sync"
)

// ErrDepthExceeded is returned when an entry lies beyond the configured
// depth limit. Non-fatal: the engine records the address as skipped.
var ErrDepthExceeded = errors.New("depth limit exceeded")

// Frontier is the pending-address priority queue. Safe for concurrent
// use by the worker pool.
type Frontier struct {
	mu       sync.Mutex
	heap     entryHeap
	maxDepth int
	nextSeq  uint64
	pushed   uint64
	popped   uint64
}

// New creates an empty frontier that rejects entries deeper than
// maxDepth.
func New(maxDepth int) *Frontier {
	return &Frontier{maxDepth: maxDepth}
}

// Push admits an entry into the queue. Entries beyond the depth limit
// are rejected with ErrDepthExceeded. Push assigns the admission
// sequence number that breaks score and depth ties.
func (f *Frontier) Push(e *Entry) error {
	if e.Depth > f.maxDepth {
		return ErrDepthExceeded
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	e.seq = f.nextSeq
	f.nextSeq++
	f.pushed++
	heap.Push(&f.heap, e)
	return nil
}

// Requeue puts a previously popped entry back without assigning a new
// sequence number, so a retried entry keeps its original position among
// equal-score peers. The caller is responsible for attempt accounting.
func (f *Frontier) Requeue(e *Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	heap.Push(&f.heap, e)
}

// Pop removes and returns the best entry: highest score, then lowest
// depth, then earliest admission. The second return is false when the
// queue is empty.
func (f *Frontier) Pop() (*Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heap.Len() == 0 {
		return nil, false
	}
	f.popped++
	return heap.Pop(&f.heap).(*Entry), true
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heap.Len()
}

// Stats returns cumulative push and pop counts.
func (f *Frontier) Stats() (pushed, popped uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushed, f.popped
}

// entryHeap implements heap.Interface with the frontier ordering.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*Entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
