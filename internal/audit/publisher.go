package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher stamps events and hands them to a Store, either inline or through
// a buffered Worker. In async mode a full buffer drops the event rather than
// blocking the protocol.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	buffer  int
	inbox   chan Event
	done    chan struct{}
	closeMu sync.Once
	dropped atomic.Int64
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with the given channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.buffer > 0 {
		p.inbox = make(chan Event, p.buffer)
		p.done = make(chan struct{})
		worker := NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = worker.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. Category and severity are derived from the action when
// unset, and a zero timestamp is replaced with the current time.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	action := AuditEvent(event.Action)
	if event.Category == "" {
		event.Category = action.Category()
	}
	if event.Severity == "" {
		event.Severity = action.Severity()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"transfer_id", event.TransferID,
		)
	}
	return nil
}

// Dropped reports how many events async mode discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close drains pending async events. It is safe to call more than once.
func (p *Publisher) Close() {
	p.closeMu.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}
