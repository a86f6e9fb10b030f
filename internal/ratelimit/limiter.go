// Package ratelimit keeps a fixed-window request budget per API key in
// process memory.
package ratelimit

import (
	"sync"
	"time"
)

const DefaultWindow = time.Minute

type bucket struct {
	tokens      int
	windowStart time.Time
}

// Limiter is safe for concurrent use. State lives for the lifetime of the
// process and is not shared between instances.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	buckets map[int64]*bucket
}

type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(window time.Duration, opts ...Option) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		window:  window,
		now:     time.Now,
		buckets: make(map[int64]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token from keyID's bucket. A key seen for the first
// time, or whose window has elapsed, starts again with limit tokens.
func (l *Limiter) Allow(keyID int64, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[keyID]
	if !ok {
		b = &bucket{tokens: limit, windowStart: now}
		l.buckets[keyID] = b
	} else if now.Sub(b.windowStart) >= l.window {
		b.tokens = limit
		b.windowStart = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Remaining reports the tokens left in keyID's current window without
// consuming one.
func (l *Limiter) Remaining(keyID int64, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[keyID]
	if !ok || l.now().Sub(b.windowStart) >= l.window {
		return limit
	}
	return b.tokens
}

// Prune drops buckets whose window started more than idle ago and returns
// how many were removed. A bucket whose window is still open is kept
// whatever idle is.
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-max(idle, l.window))
	removed := 0
	for id, b := range l.buckets {
		if b.windowStart.Before(cutoff) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
