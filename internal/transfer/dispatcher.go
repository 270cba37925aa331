package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Runner executes one transfer to completion.
type Runner interface {
	Run(ctx context.Context, transferID uuid.UUID, sender, receiver string) (Outcome, error)
}

// Dispatcher starts each transfer on its own goroutine and hands back a
// channel that delivers exactly one Outcome. Started runs are never
// cancelled and there is no limit on how many run at once.
type Dispatcher struct {
	runner   Runner
	logger   *slog.Logger
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func NewDispatcher(runner Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{runner: runner, logger: logger}
}

// Submit returns immediately. The caller's context contributes values only;
// its cancellation does not reach the run.
func (d *Dispatcher) Submit(ctx context.Context, transferID uuid.UUID, sender, receiver string) <-chan Outcome {
	ctx = context.WithoutCancel(ctx)
	out := make(chan Outcome, 1)

	d.wg.Add(1)
	d.inFlight.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)
		defer close(out)
		out <- d.run(ctx, transferID, sender, receiver)
	}()
	return out
}

func (d *Dispatcher) run(ctx context.Context, transferID uuid.UUID, sender, receiver string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "transfer run panicked", "transfer_id", transferID.String(), "panic", r)
			outcome = Outcome{TransferID: transferID, Err: fmt.Errorf("transfer run panicked: %v", r)}
		}
	}()

	outcome, err := d.runner.Run(ctx, transferID, sender, receiver)
	if err != nil {
		d.logger.ErrorContext(ctx, "transfer could not be recorded", "transfer_id", transferID.String(), "error", err)
		outcome.TransferID = transferID
		outcome.Err = err
	}
	return outcome
}

// InFlight reports how many submitted runs have not finished.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Wait blocks until every submitted run has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
