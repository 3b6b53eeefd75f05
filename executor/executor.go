// Package executor runs settlement plans against the payment rail.
//
// Transfers are attempted independently with bounded concurrency: one failed
// transfer never aborts the rest of the plan. Every attempt is bounded by a
// per-transfer timeout, transient rail failures are retried with exponential
// backoff, and the terminal outcome of every transaction lands in the Report.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/settle/idempotency"
	"github.com/xraph/settle/identity"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/rail"
)

// Executor submits planned transfers to a payment rail.
type Executor struct {
	rail     rail.Rail
	registry idempotency.Registry
	resolver identity.Resolver
	logger   *slog.Logger

	concurrency     int
	transferTimeout time.Duration
	maxRetries      int
	retryInterval   time.Duration
}

// New creates an executor for the given rail.
func New(r rail.Rail, opts ...Option) *Executor {
	e := &Executor{
		rail:            r,
		registry:        idempotency.NewMemory(),
		resolver:        identity.Passthrough(),
		logger:          slog.New(slog.DiscardHandler),
		concurrency:     4,
		transferTimeout: 10 * time.Second,
		maxRetries:      3,
		retryInterval:   250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Executor.
type Option func(*Executor)

// WithRegistry sets the idempotency registry consulted before every transfer.
func WithRegistry(reg idempotency.Registry) Option {
	return func(e *Executor) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// WithResolver sets the participant-to-address resolver.
func WithResolver(r identity.Resolver) Option {
	return func(e *Executor) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConcurrency bounds the number of transfers in flight at once.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithTransferTimeout bounds each individual transfer attempt.
func WithTransferTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.transferTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a transient transfer failure is retried
// after the first attempt.
func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryInterval sets the initial backoff interval between retries.
func WithRetryInterval(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.retryInterval = d
		}
	}
}

// Execute runs every transaction in the plan against the rail with bounded
// concurrency. Execute always returns a complete report: per-transfer
// failures are recorded in it, never escalated to a whole-plan error.
// Cancelling ctx stops feeding new transfers; transfers already submitted
// run to their outcome, the rest fail without side effects.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan) *Report {
	report := &Report{
		PlanID:    p.ID,
		Results:   make([]TransactionResult, len(p.Transactions)),
		StartedAt: time.Now().UTC(),
	}
	if p.IsEmpty() {
		report.FinishedAt = report.StartedAt
		return report
	}

	workers := e.concurrency
	if workers > len(p.Transactions) {
		workers = len(p.Transactions)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = e.run(ctx, p.Transactions[i])
			}
		}()
	}

	next := 0
feed:
	for ; next < len(p.Transactions); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// Transactions never handed to a worker fail in place, untouched by the rail.
	for ; next < len(p.Transactions); next++ {
		report.Results[next] = failed(p.Transactions[next], 0, fmt.Sprintf("not submitted: %v", ctx.Err()))
	}

	report.FinishedAt = time.Now().UTC()
	return report
}

// run drives a single transaction to its terminal state.
func (e *Executor) run(ctx context.Context, txn plan.Transaction) TransactionResult {
	key := txn.Key()
	logger := e.logger.With(
		"txn_id", txn.ID,
		"from", txn.FromID,
		"to", txn.ToID,
		"amount", txn.Amount.Amount,
	)

	// Replay guard: a transfer confirmed by an earlier run never moves money
	// again. A registry lookup failure is not fatal because the rail
	// deduplicates on the same key.
	if reference, ok, err := e.registry.Lookup(ctx, key); err != nil {
		logger.Warn("idempotency lookup failed", "error", err)
	} else if ok {
		logger.Debug("transfer already confirmed", "reference", reference)
		return confirmed(txn, reference, 0)
	}

	from, err := e.resolver.Resolve(ctx, txn.FromID)
	if err != nil {
		return failed(txn, 0, fmt.Sprintf("resolve %s: %v", txn.FromID, err))
	}
	to, err := e.resolver.Resolve(ctx, txn.ToID)
	if err != nil {
		return failed(txn, 0, fmt.Sprintf("resolve %s: %v", txn.ToID, err))
	}

	req := rail.TransferRequest{
		Key:    key,
		From:   from,
		To:     to,
		Amount: txn.Amount,
	}

	receipt, attempts, err := e.submit(ctx, req)
	if err != nil {
		logger.Warn("transfer failed", "attempts", attempts, "error", err)
		return failed(txn, attempts, err.Error())
	}

	if err := e.registry.Record(ctx, key, receipt.Reference); err != nil {
		logger.Warn("idempotency record failed", "error", err)
	}

	logger.Debug("transfer confirmed", "reference", receipt.Reference, "attempts", attempts)
	return confirmed(txn, receipt.Reference, attempts)
}

// submit attempts the transfer with per-attempt timeouts and exponential
// backoff on transient failures. It reports how many attempts were made.
func (e *Executor) submit(ctx context.Context, req rail.TransferRequest) (*rail.Receipt, int, error) {
	attempts := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInterval

	receipt, err := backoff.Retry(ctx, func() (*rail.Receipt, error) {
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, e.transferTimeout)
		defer cancel()

		receipt, err := e.rail.Transfer(attemptCtx, req)
		if err == nil {
			return receipt, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(e.maxRetries)+1))

	return receipt, attempts, err
}

// retryable treats rail unavailability and attempt timeouts as transient.
func retryable(err error) bool {
	return rail.Retryable(err) || errors.Is(err, context.DeadlineExceeded)
}
