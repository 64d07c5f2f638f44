package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/dashboard")

// DefaultFetchTimeout is the hard budget of one fetch run.
const DefaultFetchTimeout = 15 * time.Second

// Source names used in errors, logs and metrics.
const (
	SourcePayments  = "payments"
	SourceLineItems = "line_items"
	SourceExpenses  = "expenses"
	SourceInventory = "inventory"
)

// Fetcher issues the four dashboard reads of one store concurrently and
// races them against a hard timeout and the caller's cancellation.
type Fetcher struct {
	source  port.RecordSource
	auth    port.AuthContext
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewFetcher creates a fetcher. A non-positive timeout uses DefaultFetchTimeout.
func NewFetcher(
	source port.RecordSource,
	auth port.AuthContext,
	timeout time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		source:  source,
		auth:    auth,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Run performs one fetch. The outcome is exactly one of:
//   - the four record sets, when every read completed
//   - *domain.ErrTimedOut, when the budget elapsed first
//   - domain.ErrCancelled, when ctx was cancelled first
//   - *domain.ErrSourceRead, when a read failed first
//   - *domain.ErrNotAuthenticated, when there was no session to fetch with
//
// Pending reads are cancelled on every outcome except success. Run does not
// wait for them to return.
func (f *Fetcher) Run(ctx context.Context) (*domain.RecordSet, error) {
	ctx, span := tracer.Start(ctx, "Fetcher.Run")
	defer span.End()

	runID := uuid.NewString()
	span.SetAttributes(attribute.String("fetch.run_id", runID))
	log := f.logger.With(zap.String("run_id", runID))
	if id := observability.TraceID(ctx); id != "" {
		log = log.With(zap.String("trace_id", id))
	}

	start := time.Now()
	set, err := f.run(ctx, start)
	elapsed := time.Since(start)

	state := domain.StateOf(err)
	f.metrics.RecordFetch(state, elapsed)
	span.SetAttributes(attribute.String("fetch.outcome", string(state)))

	switch state {
	case domain.FetchSucceeded:
		log.Info("dashboard fetch completed",
			zap.Duration("elapsed", elapsed),
			zap.Int("payments", len(set.Payments)),
			zap.Int("line_items", len(set.LineItems)),
			zap.Int("expenses", len(set.Expenses)),
			zap.Int("inventory", len(set.Inventory)),
		)
	case domain.FetchCancelled:
		log.Debug("dashboard fetch cancelled", zap.Duration("elapsed", elapsed))
	default:
		span.RecordError(err)
		log.Warn("dashboard fetch failed",
			zap.String("outcome", string(state)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	}
	return set, err
}

func (f *Fetcher) run(ctx context.Context, start time.Time) (*domain.RecordSet, error) {
	if ctx.Err() != nil {
		return nil, f.interrupted(ctx, start)
	}

	select {
	case <-f.auth.Ready():
	default:
		return nil, &domain.ErrNotAuthenticated{Reason: "authentication not resolved"}
	}
	if _, ok := f.auth.Session(); !ok {
		return nil, &domain.ErrNotAuthenticated{Reason: "no active session"}
	}

	// One signal for all four reads. Cancelled on every return path.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var set domain.RecordSet
	g, gCtx := errgroup.WithContext(runCtx)

	// The first failure ends the run without waiting for slower siblings
	// to notice cancellation.
	errCh := make(chan error, 4)
	fail := func(err error) error {
		errCh <- err
		return err
	}

	g.Go(func() error {
		rows, err := f.source.ReadPayments(gCtx)
		if err != nil {
			return fail(f.readError(gCtx, SourcePayments, err))
		}
		set.Payments = rows
		return nil
	})
	g.Go(func() error {
		rows, err := f.source.ReadLineItems(gCtx)
		if err != nil {
			return fail(f.readError(gCtx, SourceLineItems, err))
		}
		set.LineItems = rows
		return nil
	})
	g.Go(func() error {
		rows, err := f.source.ReadExpenses(gCtx)
		if err != nil {
			return fail(f.readError(gCtx, SourceExpenses, err))
		}
		set.Expenses = rows
		return nil
	})
	g.Go(func() error {
		rows, err := f.source.ReadInventory(gCtx)
		if err != nil {
			return fail(f.readError(gCtx, SourceInventory, err))
		}
		set.Inventory = rows
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil, f.interrupted(ctx, start)
		}
		return nil, err
	case err := <-done:
		if err != nil {
			if ctx.Err() != nil {
				return nil, f.interrupted(ctx, start)
			}
			return nil, err
		}
		return &set, nil
	case <-timer.C:
		return nil, &domain.ErrTimedOut{Operation: "dashboard fetch", After: f.timeout}
	case <-ctx.Done():
		return nil, f.interrupted(ctx, start)
	}
}

// readError wraps a failed read. Reads that only stopped because the run was
// already being torn down are not counted against their source.
func (f *Fetcher) readError(ctx context.Context, source string, err error) error {
	if ctx.Err() == nil {
		f.metrics.IncrSourceError(source)
	}
	return &domain.ErrSourceRead{Source: source, Err: err}
}

// interrupted reports why ctx ended: a parent deadline is a timeout,
// anything else is a cancellation.
func (f *Fetcher) interrupted(ctx context.Context, start time.Time) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.ErrTimedOut{
			Operation: "dashboard fetch",
			After:     time.Since(start).Round(time.Millisecond),
		}
	}
	return domain.ErrCancelled
}
