package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter coordinates request concurrency and per-host spacing.
// Safe for concurrent use.
type Limiter struct {
	global *semaphore.Weighted
	delay  time.Duration

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// New creates a limiter with the given global concurrency ceiling and
// per-host request spacing. A zero delay disables spacing but keeps the
// concurrency ceiling.
func New(maxConcurrency int, perHostDelay time.Duration) *Limiter {
	return &Limiter{
		global: semaphore.NewWeighted(int64(maxConcurrency)),
		delay:  perHostDelay,
		hosts:  make(map[string]*rate.Limiter),
	}
}

// Acquire blocks until a global slot is free and the host's spacing
// interval has elapsed, or until ctx is done. On success it returns a
// release function that must be called exactly once; calling it more
// than once is a no-op.
//
// The global slot is taken before the host wait so a slow host cannot
// let the process exceed the concurrency ceiling, and the slot is given
// back if the host wait is cancelled.
func (l *Limiter) Acquire(ctx context.Context, host string) (func(), error) {
	if err := l.global.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if err := l.hostLimiter(host).Wait(ctx); err != nil {
		l.global.Release(1)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.global.Release(1) })
	}, nil
}

// hostLimiter returns the token bucket for the host, creating it on
// first use.
func (l *Limiter) hostLimiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl, ok := l.hosts[host]
	if !ok {
		limit := rate.Inf
		if l.delay > 0 {
			limit = rate.Every(l.delay)
		}
		rl = rate.NewLimiter(limit, 1)
		l.hosts[host] = rl
	}
	return rl
}
