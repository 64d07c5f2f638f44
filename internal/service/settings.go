package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/pos-dashboard-bfa/internal/dashboard"
	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Accepted range of threshold updates. A stored value below the minimum
// reads as unset.
const (
	MinLowStockThreshold = 1
	MaxLowStockThreshold = 1_000_000
)

// Settings reads and updates the per-store low-stock default threshold.
type Settings struct {
	store    port.SettingsStore
	fallback int
	logger   *zap.Logger
}

// NewSettings creates the settings service. fallback is reported when the
// store has no value; zero means dashboard.DefaultLowStockThreshold.
func NewSettings(store port.SettingsStore, fallback int, logger *zap.Logger) *Settings {
	return &Settings{
		store:    store,
		fallback: dashboard.GlobalThreshold(fallback, fallback > 0),
		logger:   logger,
	}
}

// LowStock returns the effective default threshold of a store.
func (s *Settings) LowStock(ctx context.Context, storeID string) (*domain.LowStockSetting, error) {
	ctx, span := tracer.Start(ctx, "Settings.LowStock")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID))

	v, ok, err := s.store.LowStockThreshold(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("read low-stock threshold: %w", err)
	}
	if !ok || v < MinLowStockThreshold {
		return &domain.LowStockSetting{StoreID: storeID, Threshold: s.fallback, IsDefault: true}, nil
	}
	return &domain.LowStockSetting{StoreID: storeID, Threshold: v}, nil
}

// SetLowStock stores a new default threshold for a store.
func (s *Settings) SetLowStock(ctx context.Context, storeID string, threshold int) (*domain.LowStockSetting, error) {
	ctx, span := tracer.Start(ctx, "Settings.SetLowStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.id", storeID),
		attribute.Int("threshold", threshold),
	)

	if threshold < MinLowStockThreshold || threshold > MaxLowStockThreshold {
		return nil, &domain.ErrValidation{
			Field:   "threshold",
			Message: fmt.Sprintf("must be between %d and %d", MinLowStockThreshold, MaxLowStockThreshold),
		}
	}

	if err := s.store.SetLowStockThreshold(ctx, storeID, threshold); err != nil {
		return nil, fmt.Errorf("write low-stock threshold: %w", err)
	}

	s.logger.Info("low-stock threshold updated",
		zap.String("store_id", storeID),
		zap.Int("threshold", threshold),
	)
	return &domain.LowStockSetting{StoreID: storeID, Threshold: threshold}, nil
}
