package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"securetransfer/internal/audit"
	"securetransfer/internal/platform/metrics"
	"securetransfer/pkg/platform/sentinel"
)

// Submitter starts a transfer asynchronously.
type Submitter interface {
	Submit(ctx context.Context, transferID uuid.UUID, sender, receiver string) <-chan Outcome
}

// InitiateRequest is what a caller uploads. Sender is the authenticated caller.
type InitiateRequest struct {
	Sender   string
	Receiver string
	FileName string
	Content  []byte
	// Client describes the calling user agent for audit records.
	Client string
}

// Service is the caller-facing layer: it stores uploads, creates PENDING
// transfers, dispatches them and answers status and download queries.
// Identity checks are left to the protocol, which records unknown
// identities as a failed transfer.
type Service struct {
	transfers  TransferStore
	content    ContentStore
	dispatcher Submitter
	auditor    AuditPublisher
	metrics    *metrics.Metrics
	clock      clock.Clock
	logger     *slog.Logger
}

type ServiceOption func(*Service)

func WithServiceAuditor(a AuditPublisher) ServiceOption {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithServiceClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(transfers TransferStore, content ContentStore, dispatcher Submitter, opts ...ServiceOption) (*Service, error) {
	if transfers == nil {
		return nil, errors.New("transfer store is required")
	}
	if content == nil {
		return nil, errors.New("content store is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	s := &Service{
		transfers:  transfers,
		content:    content,
		dispatcher: dispatcher,
		clock:      clock.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Initiate accepts an upload and dispatches the transfer. The returned
// channel delivers the terminal outcome; callers that only poll may drop it.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*Transfer, <-chan Outcome, error) {
	sender := strings.ToLower(strings.TrimSpace(req.Sender))
	receiver := strings.ToLower(strings.TrimSpace(req.Receiver))
	if sender == "" || receiver == "" {
		return nil, nil, fmt.Errorf("%w: sender and receiver are required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	ref, err := s.content.StoreRaw(ctx, req.FileName, req.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("store raw content: %w", err)
	}
	t := NewTransfer(sender, receiver, req.FileName, ref, s.clock.Now())
	if err := s.transfers.Save(ctx, t); err != nil {
		return nil, nil, fmt.Errorf("save transfer: %w", err)
	}

	s.metrics.IncrementInitiated()
	s.logger.InfoContext(ctx, "transfer accepted",
		"transfer_id", t.ID.String(),
		"sender", sender,
		"receiver", receiver,
		"size", len(req.Content),
	)
	s.emit(ctx, audit.Event{
		TransferID:   t.ID.String(),
		Subject:      sender,
		Counterparty: receiver,
		Action:       string(audit.EventTransferInitiated),
		Client:       req.Client,
	})

	return t, s.dispatcher.Submit(ctx, t.ID, sender, receiver), nil
}

// Status returns the transfer if caller is its sender or receiver.
func (s *Service) Status(ctx context.Context, id uuid.UUID, caller string) (*Transfer, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(caller) {
		s.denied(ctx, t, caller, "status")
		return nil, ErrForbidden
	}
	return t, nil
}

// DecryptedContent returns the decrypted file. Only the receiver may read it,
// and only once the transfer has completed.
func (s *Service) DecryptedContent(ctx context.Context, id uuid.UUID, caller string) (*Transfer, []byte, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsReceiver(caller) {
		s.denied(ctx, t, caller, "content")
		return nil, nil, ErrForbidden
	}
	if t.Status != StatusCompleted {
		return nil, nil, ErrNotCompleted
	}
	data, err := s.content.LoadDecrypted(ctx, t.DecryptedRef)
	if err != nil {
		return nil, nil, fmt.Errorf("load decrypted content: %w", err)
	}
	s.emit(ctx, audit.Event{
		TransferID:   t.ID.String(),
		Subject:      t.Receiver,
		Counterparty: t.Sender,
		Action:       string(audit.EventContentRetrieved),
	})
	return t, data, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	t, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find transfer: %w", err)
	}
	return t, nil
}

func (s *Service) denied(ctx context.Context, t *Transfer, caller, resource string) {
	s.logger.WarnContext(ctx, "transfer access denied",
		"transfer_id", t.ID.String(),
		"caller", caller,
		"resource", resource,
	)
	s.emit(ctx, audit.Event{
		TransferID: t.ID.String(),
		Subject:    caller,
		Action:     string(audit.EventAccessDenied),
		Reason:     resource,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}
