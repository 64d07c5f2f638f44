package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"
	"github.com/boddenberg/pos-dashboard-bfa/internal/service"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)

// --- Mocks ---

type readFunc[T any] func(ctx context.Context) ([]T, error)

type mockSource struct {
	payments  readFunc[domain.PaymentRecord]
	lineItems readFunc[domain.LineItemRecord]
	expenses  readFunc[domain.ExpenseRecord]
	inventory readFunc[domain.InventoryRecord]
}

func (m *mockSource) ReadPayments(ctx context.Context) ([]domain.PaymentRecord, error) {
	if m.payments == nil {
		return nil, nil
	}
	return m.payments(ctx)
}

func (m *mockSource) ReadLineItems(ctx context.Context) ([]domain.LineItemRecord, error) {
	if m.lineItems == nil {
		return nil, nil
	}
	return m.lineItems(ctx)
}

func (m *mockSource) ReadExpenses(ctx context.Context) ([]domain.ExpenseRecord, error) {
	if m.expenses == nil {
		return nil, nil
	}
	return m.expenses(ctx)
}

func (m *mockSource) ReadInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	if m.inventory == nil {
		return nil, nil
	}
	return m.inventory(ctx)
}

type mockFactory struct {
	source port.RecordSource
	stores []string
	mu     sync.Mutex
}

func (m *mockFactory) ForStore(storeID string) port.RecordSource {
	m.mu.Lock()
	m.stores = append(m.stores, storeID)
	m.mu.Unlock()
	return m.source
}

type mockSettings struct {
	mu        sync.Mutex
	threshold map[string]int
	err       error
	// delay stalls reads without watching ctx, like a hung connection.
	delay time.Duration
}

func (m *mockSettings) LowStockThreshold(_ context.Context, storeID string) (int, bool, error) {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.threshold[storeID]
	return v, ok, nil
}

func (m *mockSettings) SetLowStockThreshold(_ context.Context, storeID string, threshold int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.threshold == nil {
		m.threshold = make(map[string]int)
	}
	m.threshold[storeID] = threshold
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- Helpers ---

func signedIn() *service.SessionState {
	s := service.NewSessionState(func() time.Time { return now })
	s.Resolve(&domain.Session{UserID: "user-1", StoreID: "store-1", ExpiresAt: now.Add(time.Hour)})
	return s
}

// blockUntilCancelled reads nothing until ctx ends.
func blockUntilCancelled[T any](stopped chan<- struct{}) readFunc[T] {
	return func(ctx context.Context) ([]T, error) {
		<-ctx.Done()
		if stopped != nil {
			close(stopped)
		}
		return nil, ctx.Err()
	}
}

// salesOf returns a payments reader producing one payment of total at now.
func salesOf(total string, calls *atomic.Int32) readFunc[domain.PaymentRecord] {
	return func(context.Context) ([]domain.PaymentRecord, error) {
		if calls != nil {
			calls.Add(1)
		}
		return []domain.PaymentRecord{{
			InvoiceNo:       "INV-1",
			CustomerName:    "Budi",
			GrandTotal:      decimal.RequireFromString(total),
			TransactionTime: now,
		}}, nil
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
