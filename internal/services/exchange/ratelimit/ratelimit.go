// Package ratelimit provides per-key request throttling for the API.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per key, typically a client IP.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	limit    rate.Limit
	burst    int
	interval time.Duration // refill window for SetCount, zero when built via New
	count    int
	ttl      time.Duration
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerMinute returns a limiter allowing n requests per minute per key.
func PerMinute(n int) *Limiter {
	l := New(rate.Every(time.Minute/time.Duration(n)), n)
	l.interval = time.Minute
	l.count = n
	return l
}

// PerHour returns a limiter allowing n requests per hour per key.
func PerHour(n int) *Limiter {
	l := New(rate.Every(time.Hour/time.Duration(n)), n)
	l.interval = time.Hour
	l.count = n
	return l
}

// SetCount retunes a windowed limiter to allow n requests per window.
// Existing buckets pick up the new rate. A no-op when n is unchanged,
// not positive, or the limiter was built without a window.
func (l *Limiter) SetCount(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.interval <= 0 || n == l.count {
		return
	}
	l.count = n
	l.limit = rate.Every(l.interval / time.Duration(n))
	l.burst = n
	for _, e := range l.entries {
		e.limiter.SetLimit(l.limit)
		e.limiter.SetBurst(n)
	}
}

// New builds a limiter with the given refill rate and burst size.
func New(limit rate.Limit, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		entries: make(map[string]*entry),
		limit:   limit,
		burst:   burst,
		ttl:     time.Hour,
		now:     time.Now,
	}
}

// Allow reports whether a request under key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	if len(l.entries) > 1000 {
		l.pruneLocked(now)
	}
	return e.limiter.Allow()
}

func (l *Limiter) pruneLocked(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.entries, key)
		}
	}
}
