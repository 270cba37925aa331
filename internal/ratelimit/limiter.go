// Package ratelimit throttles expensive requests per caller with an
// in-process sliding window.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Result describes one admission decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Limiter admits at most limit requests per key within any window-long span.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clock   clock.Clock
	buckets map[string][]time.Time
}

type Option func(*Limiter)

func WithClock(c clock.Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

func NewLimiter(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		clock:   clock.New(),
		buckets: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key if it fits in the window.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	stamps := l.prune(key, now)

	if len(stamps) >= l.limit {
		resetAt := stamps[0].Add(l.window)
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			ResetAt:    resetAt,
			RetryAfter: int(math.Ceil(resetAt.Sub(now).Seconds())),
		}
	}

	stamps = append(stamps, now)
	l.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(stamps),
		ResetAt:   stamps[0].Add(l.window),
	}
}

// prune drops timestamps older than the window. Callers hold l.mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	stamps := l.buckets[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	stamps = stamps[i:]
	if len(stamps) == 0 {
		delete(l.buckets, key)
	}
	return stamps
}
