package nonce

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// SweepRecorder receives the number of nonces each sweep removed.
type SweepRecorder interface {
	ObserveNoncesSwept(n int)
}

// Sweeper periodically purges expired nonces from a Sweepable registry.
// It runs independently of protocol execution.
type Sweeper struct {
	target   Sweepable
	clock    clock.Clock
	interval time.Duration
	window   time.Duration
	logger   *slog.Logger
	recorder SweepRecorder
}

type SweeperOption func(*Sweeper)

func WithSweepClock(c clock.Clock) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithWindow(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRecorder(r SweepRecorder) SweeperOption {
	return func(s *Sweeper) {
		s.recorder = r
	}
}

func NewSweeper(target Sweepable, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		target:   target,
		clock:    clock.New(),
		interval: DefaultSweepInterval,
		window:   DefaultValidity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run sweeps on every tick until ctx is cancelled. A failed sweep is logged
// and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SweepOnce performs a single sweep at the clock's current time.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.target.Sweep(ctx, s.clock.Now(), s.window)
	if err != nil {
		s.logger.WarnContext(ctx, "nonce sweep failed", "error", err)
		return 0
	}
	if removed > 0 {
		s.logger.DebugContext(ctx, "expired nonces swept", "removed", removed)
	}
	if s.recorder != nil {
		s.recorder.ObserveNoncesSwept(removed)
	}
	return removed
}
