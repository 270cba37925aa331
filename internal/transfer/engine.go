package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"securetransfer/internal/audit"
	"securetransfer/internal/platform/metrics"
)

// Engine runs the protocol for a stored transfer and records the outcome.
type Engine struct {
	protocol  *Protocol
	transfers TransferStore
	content   ContentStore
	auditor   AuditPublisher
	metrics   *metrics.Metrics
	clock     clock.Clock
	logger    *slog.Logger
}

type EngineOption func(*Engine)

func WithAuditor(a AuditPublisher) EngineOption {
	return func(e *Engine) {
		e.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(protocol *Protocol, transfers TransferStore, content ContentStore, opts ...EngineOption) (*Engine, error) {
	if protocol == nil {
		return nil, errors.New("protocol is required")
	}
	if transfers == nil {
		return nil, errors.New("transfer store is required")
	}
	if content == nil {
		return nil, errors.New("content store is required")
	}
	e := &Engine{
		protocol:  protocol,
		transfers: transfers,
		content:   content,
		clock:     clock.New(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Run executes the protocol for a PENDING transfer between sender and
// receiver and persists the terminal status. Protocol failures are reported
// in the Outcome; the error return is reserved for faults that leave the
// transfer unrecorded.
func (e *Engine) Run(ctx context.Context, transferID uuid.UUID, sender, receiver string) (Outcome, error) {
	outcome := Outcome{TransferID: transferID}

	t, err := e.transfers.FindByID(ctx, transferID)
	if err != nil {
		return outcome, fmt.Errorf("load transfer %s: %w", transferID, err)
	}
	if t.Status != StatusPending {
		return outcome, fmt.Errorf("run transfer %s in status %s: %w", transferID, t.Status, ErrNotPending)
	}

	e.metrics.TransferStarted()
	defer e.metrics.TransferFinished()

	logger := e.logger.With("transfer_id", transferID.String(), "sender", sender, "receiver", receiver)
	logger.InfoContext(ctx, "transfer started")

	var (
		decryptedRef string
		perr         *ProtocolError
	)
	raw, err := e.content.LoadRaw(ctx, t.StoredRef)
	if err != nil {
		perr = failure(KindStorageFailure, PhaseLoad, fmt.Errorf("load raw content: %w", err))
	}
	if perr == nil {
		result, err := e.protocol.Execute(ctx, sender, receiver, raw)
		if err != nil {
			perr = AsProtocolError(err, PhaseCompletion)
		} else {
			decryptedRef, err = e.content.StoreDecrypted(ctx, result.Plaintext, t.OriginalFileName)
			if err != nil {
				perr = failure(KindStorageFailure, PhaseCompletion, fmt.Errorf("store decrypted content: %w", err))
			}
		}
	}

	now := e.clock.Now()
	if perr == nil {
		err = t.MarkCompleted(decryptedRef, now)
	} else {
		err = t.MarkFailed(perr.Kind, perr.Error(), now)
	}
	if err != nil {
		return outcome, fmt.Errorf("finish transfer %s: %w", transferID, err)
	}
	if err := e.transfers.Save(ctx, t); err != nil {
		return outcome, fmt.Errorf("save transfer %s: %w", transferID, err)
	}

	outcome.Status = t.Status
	outcome.DecryptedRef = t.DecryptedRef
	outcome.Failure = perr

	e.record(ctx, logger, t, perr)
	return outcome, nil
}

func (e *Engine) record(ctx context.Context, logger *slog.Logger, t *Transfer, perr *ProtocolError) {
	event := audit.Event{
		TransferID:   t.ID.String(),
		Subject:      t.Sender,
		Counterparty: t.Receiver,
	}

	if perr == nil {
		e.metrics.IncrementOutcome(string(StatusCompleted), "")
		logger.InfoContext(ctx, "transfer completed", "decrypted_ref", t.DecryptedRef)
		event.Action = string(audit.EventTransferCompleted)
		e.emit(ctx, event)
		return
	}

	e.metrics.IncrementOutcome(string(StatusFailed), string(perr.Kind))
	attrs := []any{"kind", perr.Kind, "phase", perr.Phase, "reason", t.FailureReason}
	if perr.Kind.IsSecurity() {
		logger.WarnContext(ctx, "transfer rejected", attrs...)
	} else {
		logger.InfoContext(ctx, "transfer failed", attrs...)
	}

	event.Kind = string(perr.Kind)
	event.Reason = t.FailureReason
	event.Action = string(failureEvent(perr.Kind))
	e.emit(ctx, event)
}

func failureEvent(kind FailureKind) audit.AuditEvent {
	switch kind {
	case KindReplayDetected:
		return audit.EventReplayDetected
	case KindSignatureInvalid:
		return audit.EventSignatureRejected
	case KindIntegrityMismatch:
		return audit.EventIntegrityMismatch
	default:
		return audit.EventTransferFailed
	}
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}
