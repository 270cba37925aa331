package audit

import (
	"context"
	"log/slog"

	"securetransfer/pkg/platform/circuit"
)

// FallbackStore writes to a primary store and diverts to a fallback whenever
// the primary fails. Every event goes to the primary first; the breaker only
// decides how loudly failures are reported and when recovery is announced.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallbackStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	if breaker == nil {
		breaker = circuit.New("audit")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *FallbackStore) Append(ctx context.Context, event Event) error {
	err := s.primary.Append(ctx, event)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "audit primary store recovered", "breaker", s.breaker.Name())
		}
		return nil
	}

	_, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.ErrorContext(ctx, "audit primary store unavailable, using fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	} else {
		s.logger.WarnContext(ctx, "audit primary append failed",
			"action", event.Action,
			"transfer_id", event.TransferID,
			"error", err,
		)
	}
	return s.fallback.Append(ctx, event)
}

// Degraded reports whether the breaker is open.
func (s *FallbackStore) Degraded() bool {
	return s.breaker.IsOpen()
}
