package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/dashboard"
	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Defaults for DashboardConfig.
const (
	DefaultStaleAfter       = 2 * time.Minute
	DefaultAuthReadyTimeout = 5 * time.Second
)

// DashboardConfig tunes one Dashboard.
type DashboardConfig struct {
	StoreID          string
	StaleAfter       time.Duration
	AuthReadyTimeout time.Duration
	// DefaultThreshold is used when the settings store has no value.
	// Zero falls back to dashboard.DefaultLowStockThreshold.
	DefaultThreshold int
}

// Dashboard caches the metrics snapshot of one store and refreshes it
// through a Fetcher.
//
// At most one fetch run is in flight. Concurrent callers join it; a forced
// refresh supersedes it. Every run carries a generation number and only the
// run holding the current generation may commit, so results of superseded
// or cancelled runs are dropped even if they arrive late.
type Dashboard struct {
	cfg      DashboardConfig
	fetcher  *Fetcher
	auth     port.AuthContext
	settings port.SettingsStore
	clock    port.Clock
	metrics  *observability.Metrics
	logger   *zap.Logger

	snap atomic.Pointer[domain.Snapshot]

	mu       sync.Mutex
	gen      uint64
	inflight *flight
	cancel   context.CancelFunc
	state    domain.FetchState
	lastErr  error
	invalid  bool
}

// flight is one fetch run. snap and err are set before done is closed.
type flight struct {
	gen  uint64
	done chan struct{}
	snap *domain.Snapshot
	err  error
	// next is the run that superseded this one. Guarded by Dashboard.mu.
	next *flight
}

// NewDashboard creates the snapshot cache of one store.
func NewDashboard(
	cfg DashboardConfig,
	fetcher *Fetcher,
	auth port.AuthContext,
	settings port.SettingsStore,
	clock port.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dashboard {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.AuthReadyTimeout <= 0 {
		cfg.AuthReadyTimeout = DefaultAuthReadyTimeout
	}
	cfg.DefaultThreshold = dashboard.GlobalThreshold(cfg.DefaultThreshold, cfg.DefaultThreshold > 0)
	if clock == nil {
		clock = time.Now
	}
	return &Dashboard{
		cfg:      cfg,
		fetcher:  fetcher,
		auth:     auth,
		settings: settings,
		clock:    clock,
		metrics:  metrics,
		logger:   logger.With(zap.String("store_id", cfg.StoreID)),
		state:    domain.FetchIdle,
	}
}

// Refresh returns the store's metrics snapshot.
//
// Without force, a snapshot younger than the stale window is returned as is
// and an in-flight run is joined. With force, a new run always starts and
// cancels the pending one.
//
// When a run fails the previous snapshot (possibly nil) is returned together
// with the error. A cancelled run is not an error: its waiters follow the
// run that replaced it, or get the previous snapshot when none did.
func (d *Dashboard) Refresh(ctx context.Context, force bool) (*domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Refresh")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.id", d.cfg.StoreID),
		attribute.Bool("dashboard.force", force),
	)

	if err := d.awaitAuth(ctx); err != nil {
		return d.snap.Load(), err
	}

	d.mu.Lock()
	if !force {
		if s := d.fresh(); s != nil {
			d.mu.Unlock()
			d.metrics.IncrCacheHit(observability.CacheSnapshot)
			span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
			return s, nil
		}
	}
	d.metrics.IncrCacheMiss(observability.CacheSnapshot)

	f := d.inflight
	if f == nil || force {
		f = d.startLocked(ctx)
	}
	d.mu.Unlock()

	return d.await(ctx, f)
}

// Cancel stops the in-flight run, if any. Its result will not be committed.
func (d *Dashboard) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inflight == nil {
		return
	}
	d.cancel()
	d.gen++
	d.inflight = nil
	d.cancel = nil
	d.state = domain.FetchCancelled
	d.logger.Debug("dashboard fetch cancelled by caller")
}

// Invalidate marks the current snapshot stale so the next Refresh fetches.
func (d *Dashboard) Invalidate() {
	d.mu.Lock()
	d.invalid = true
	d.mu.Unlock()
}

// Snapshot returns the last committed snapshot without blocking.
func (d *Dashboard) Snapshot() *domain.Snapshot {
	return d.snap.Load()
}

// Status reports the isLoading/error pair and the last good snapshot.
func (d *Dashboard) Status() domain.DashboardStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := domain.DashboardStatus{
		IsLoading: d.inflight != nil,
		State:     d.state,
		Snapshot:  d.snap.Load(),
	}
	if d.lastErr != nil {
		st.Error = d.lastErr.Error()
	}
	if st.Snapshot != nil {
		fetchedAt := st.Snapshot.FetchedAt
		st.FetchedAt = &fetchedAt
	}
	return st
}

// fresh returns the cached snapshot if it is inside the stale window.
// Must hold d.mu.
func (d *Dashboard) fresh() *domain.Snapshot {
	s := d.snap.Load()
	if s == nil || d.invalid {
		return nil
	}
	if d.clock().Sub(s.FetchedAt) >= d.cfg.StaleAfter {
		return nil
	}
	return s
}

// startLocked supersedes the pending run and starts a new one.
// Must hold d.mu.
func (d *Dashboard) startLocked(ctx context.Context) *flight {
	if d.inflight != nil {
		d.cancel()
		d.metrics.IncrSupersession()
		d.logger.Debug("superseding in-flight dashboard fetch", zap.Uint64("generation", d.inflight.gen))
	}

	d.gen++
	f := &flight{gen: d.gen, done: make(chan struct{})}
	if d.inflight != nil {
		d.inflight.next = f
	}

	// The run outlives the request that started it; joiners may still wait.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.inflight = f
	d.cancel = cancel
	d.state = domain.FetchFetching
	d.invalid = false

	go d.run(runCtx, cancel, f)
	return f
}

func (d *Dashboard) run(ctx context.Context, cancel context.CancelFunc, f *flight) {
	defer cancel()
	defer close(f.done)

	// The threshold read shares the fetch budget instead of running ahead of it.
	thresholdCtx, stopThreshold := context.WithTimeout(ctx, d.fetcher.timeout)
	defer stopThreshold()
	thresholdCh := make(chan int, 1)
	go func() { thresholdCh <- d.globalThreshold(thresholdCtx) }()

	var snap *domain.Snapshot
	set, err := d.fetcher.Run(ctx)
	if err == nil {
		threshold := <-thresholdCh
		now := d.clock()
		snap = &domain.Snapshot{
			Metrics:   dashboard.Aggregate(set.Payments, set.LineItems, set.Expenses, set.Inventory, now, threshold),
			FetchedAt: now,
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if f.gen != d.gen {
		if err == nil {
			d.logger.Debug("discarding late result of superseded fetch", zap.Uint64("generation", f.gen))
		}
		f.err = domain.ErrCancelled
		return
	}

	d.inflight = nil
	d.cancel = nil
	d.state = domain.StateOf(err)
	f.err = err

	switch {
	case err == nil:
		d.snap.Store(snap)
		d.lastErr = nil
		f.snap = snap
	case errors.Is(err, domain.ErrCancelled):
	default:
		// Keep the previous snapshot; stale data beats a blank dashboard.
		d.lastErr = err
	}
}

// await waits for f, following supersession to the newest run.
func (d *Dashboard) await(ctx context.Context, f *flight) (*domain.Snapshot, error) {
	for {
		select {
		case <-f.done:
		case <-ctx.Done():
			return d.snap.Load(), ctx.Err()
		}

		if !errors.Is(f.err, domain.ErrCancelled) {
			if f.err != nil {
				return d.snap.Load(), f.err
			}
			return f.snap, nil
		}

		d.mu.Lock()
		next := f.next
		d.mu.Unlock()
		if next == nil {
			return d.snap.Load(), nil
		}
		f = next
	}
}

// awaitAuth blocks until authentication is resolved, giving up after
// AuthReadyTimeout.
func (d *Dashboard) awaitAuth(ctx context.Context) error {
	select {
	case <-d.auth.Ready():
		return nil
	default:
	}

	timer := time.NewTimer(d.cfg.AuthReadyTimeout)
	defer timer.Stop()

	select {
	case <-d.auth.Ready():
		return nil
	case <-timer.C:
		d.logger.Warn("authentication not ready", zap.Duration("waited", d.cfg.AuthReadyTimeout))
		return &domain.ErrAuthStuck{Waited: d.cfg.AuthReadyTimeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// globalThreshold reads the store's default low-stock threshold once per run.
// It falls back to the configured default when ctx ends before the store
// answers, or when the stored value is not positive.
func (d *Dashboard) globalThreshold(ctx context.Context) int {
	if d.settings == nil {
		return d.cfg.DefaultThreshold
	}

	type result struct {
		value int
		ok    bool
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, ok, err := d.settings.LowStockThreshold(ctx, d.cfg.StoreID)
		ch <- result{value: v, ok: ok, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		d.logger.Warn("low-stock threshold unavailable, using default",
			zap.Int("default", d.cfg.DefaultThreshold),
			zap.Error(r.err),
		)
		return d.cfg.DefaultThreshold
	}
	if !r.ok || r.value <= 0 {
		return d.cfg.DefaultThreshold
	}
	return r.value
}
