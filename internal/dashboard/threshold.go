package dashboard

import "github.com/boddenberg/pos-dashboard-bfa/internal/domain"

// DefaultLowStockThreshold applies when no global threshold is configured.
const DefaultLowStockThreshold = 10

// GlobalThreshold picks the configured global default, falling back to
// DefaultLowStockThreshold when the settings store had no value.
func GlobalThreshold(configured int, ok bool) int {
	if !ok {
		return DefaultLowStockThreshold
	}
	return configured
}

// ResolveThreshold returns the item's own threshold when set, else globalDefault.
func ResolveThreshold(item domain.InventoryRecord, globalDefault int) int {
	if item.LowStockThreshold != nil {
		return *item.LowStockThreshold
	}
	return globalDefault
}

// IsLowStock is strict: stock equal to the threshold is not low.
func IsLowStock(stock, threshold int) bool {
	return stock < threshold
}
