package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// SettingsStore implementation: store_settings table
// ============================================================

type storeSettingsRow struct {
	StoreID           string      `json:"store_id"`
	LowStockThreshold optionalInt `json:"low_stock_threshold"`
}

// LowStockThreshold returns the store's default threshold, ok=false when unset.
func (c *Client) LowStockThreshold(ctx context.Context, storeID string) (int, bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LowStockThreshold")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID))

	var rows []storeSettingsRow
	path := fmt.Sprintf("store_settings?select=store_id,low_stock_threshold&store_id=eq.%s&limit=1", url.QueryEscape(storeID))
	err := c.get(ctx, "supabase/store_settings", path, func(body []byte) error {
		if len(body) == 0 {
			return nil
		}
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return 0, false, err
	}

	if len(rows) == 0 || rows[0].LowStockThreshold.Value == nil {
		return 0, false, nil
	}
	return *rows[0].LowStockThreshold.Value, true, nil
}

// SetLowStockThreshold upserts the store's default threshold.
func (c *Client) SetLowStockThreshold(ctx context.Context, storeID string, threshold int) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetLowStockThreshold")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID), attribute.Int("threshold", threshold))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return classify(c.doUpsert(ctx, "store_settings", "store_id", map[string]any{
				"store_id":            storeID,
				"low_stock_threshold": threshold,
			}))
		})
	})
	if err != nil {
		return wrapExternal("supabase/store_settings", err)
	}
	return nil
}
