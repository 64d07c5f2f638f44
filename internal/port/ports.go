// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
)

// RecordSource reads the raw dashboard records of one store scope.
// Every read must stop promptly once ctx is cancelled.
type RecordSource interface {
	ReadPayments(ctx context.Context) ([]domain.PaymentRecord, error)
	ReadLineItems(ctx context.Context) ([]domain.LineItemRecord, error)
	ReadExpenses(ctx context.Context) ([]domain.ExpenseRecord, error)
	// ReadInventory returns the stock snapshot ordered ascending by current stock.
	ReadInventory(ctx context.Context) ([]domain.InventoryRecord, error)
}

// SourceFactory binds a RecordSource to a store scope.
type SourceFactory interface {
	ForStore(storeID string) RecordSource
}

// AuthContext supplies the authentication state a fetch run depends on.
type AuthContext interface {
	// Ready is closed once authentication has been resolved, with or without a session.
	Ready() <-chan struct{}
	// Session returns the active session, if any.
	Session() (*domain.Session, bool)
}

// SettingsStore persists the global low-stock default threshold of a store.
type SettingsStore interface {
	LowStockThreshold(ctx context.Context, storeID string) (int, bool, error)
	SetLowStockThreshold(ctx context.Context, storeID string, threshold int) error
}

// Authenticator exchanges credentials for a token pair with the auth service.
type Authenticator interface {
	SignIn(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
}

// Clock returns the current time. Injected so day boundaries are testable.
type Clock func() time.Time
