package nonce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	// DefaultValidity is how long a consumed nonce is remembered.
	DefaultValidity = 5 * time.Minute
	// DefaultSweepInterval is how often expired nonces are purged.
	DefaultSweepInterval = time.Minute

	tokenPrefix = "nonce-"
)

// Registry records consumed nonces. CheckAndConsume returns true exactly once
// per token for as long as the token is remembered; the check and the insert
// are a single atomic step.
type Registry interface {
	CheckAndConsume(ctx context.Context, token string) (bool, error)
}

// Sweepable is a Registry whose expired entries must be purged explicitly.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

// NewToken returns a fresh nonce value.
func NewToken() string {
	return tokenPrefix + uuid.NewString()
}

// MemoryRegistry is the process-local Registry. Entries are lost on restart.
type MemoryRegistry struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock clock.Clock
}

type MemoryOption func(*MemoryRegistry)

// WithClock sets the clock used to timestamp recorded nonces.
func WithClock(c clock.Clock) MemoryOption {
	return func(r *MemoryRegistry) {
		if c != nil {
			r.clock = c
		}
	}
}

func NewMemoryRegistry(opts ...MemoryOption) *MemoryRegistry {
	r := &MemoryRegistry{
		seen:  make(map[string]time.Time),
		clock: clock.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *MemoryRegistry) CheckAndConsume(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[token]; ok {
		return false, nil
	}
	r.seen[token] = r.clock.Now()
	return true, nil
}

// Sweep removes every entry recorded before now-window and returns how many
// were removed.
func (r *MemoryRegistry) Sweep(_ context.Context, now time.Time, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("sweep window must be positive, got %s", window)
	}
	cutoff := now.Add(-window)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for token, recordedAt := range r.seen {
		if recordedAt.Before(cutoff) {
			delete(r.seen, token)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of remembered nonces.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

var (
	_ Registry  = (*MemoryRegistry)(nil)
	_ Sweepable = (*MemoryRegistry)(nil)
)
