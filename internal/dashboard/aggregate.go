// Package dashboard derives the console's analytics snapshot from raw
// payment, line-item, expense and inventory records. Everything here is
// pure: no I/O, no clock reads, no shared state.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// RecentLimit caps recentTransactions.
	RecentLimit = 5
	// TopProductsLimit caps topProducts.
	TopProductsLimit = 5
	// LowStockLimit caps lowStockItems.
	LowStockLimit = 5

	// UncategorizedLabel names line items without a category.
	UncategorizedLabel = "Uncategorized"
)

// Aggregate builds a DashboardMetrics snapshot. today fixes both the
// current calendar day and the location used for day boundaries.
//
// Line items carry no date of their own: they borrow the transaction time
// of the payment with the same invoice number. Line items whose invoice has
// no payment are orphans and contribute to nothing.
func Aggregate(
	payments []domain.PaymentRecord,
	lineItems []domain.LineItemRecord,
	expenses []domain.ExpenseRecord,
	inventory []domain.InventoryRecord,
	today time.Time,
	globalThreshold int,
) domain.DashboardMetrics {
	loc := today.Location()
	todayKey := DayKey(today, loc)
	isToday := func(t time.Time) bool {
		return !t.IsZero() && DayKey(t, loc) == todayKey
	}

	trend := NewBucketIndex(today)

	invoiceDate := make(map[string]time.Time, len(payments))
	for _, p := range payments {
		invoiceDate[p.InvoiceNo] = p.TransactionTime
	}

	// --- Payments: sales, customers, revenue trend ---
	dailySales := decimal.Zero
	customers := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		customers[customerKey(p.CustomerName)] = struct{}{}
		if isToday(p.TransactionTime) {
			dailySales = dailySales.Add(p.GrandTotal)
		}
		if b := trend.Lookup(p.TransactionTime); b != nil {
			b.Revenue = b.Revenue.Add(p.GrandTotal)
		}
	}

	// --- Line items: COGS, cost trend, category and product rankings ---
	todayCOGS := decimal.Zero
	categories := newRanking[decimal.Decimal]()
	products := newRanking[int]()
	for _, li := range lineItems {
		soldAt, ok := invoiceDate[li.InvoiceNo]
		if !ok {
			continue
		}

		cost := li.CostPrice.Mul(decimal.NewFromInt(int64(cogsQuantity(li.Quantity))))
		if isToday(soldAt) {
			todayCOGS = todayCOGS.Add(cost)
		}
		if b := trend.Lookup(soldAt); b != nil {
			b.Cost = b.Cost.Add(cost)
		}

		cat := categories.slot(categoryKey(li.Category))
		*cat = cat.Add(li.TotalPrice)
		qty := products.slot(li.ItemName)
		*qty += li.Quantity
	}

	// --- Expenses ---
	todayExpenses := decimal.Zero
	for _, e := range expenses {
		if isToday(e.TransactionDate) {
			todayExpenses = todayExpenses.Add(e.Amount)
		}
		if b := trend.Lookup(e.TransactionDate); b != nil {
			b.Expense = b.Expense.Add(e.Amount)
		}
	}

	categorySales := make([]domain.CategorySale, 0, len(categories.keys))
	for i, name := range categories.keys {
		categorySales = append(categorySales, domain.CategorySale{Name: name, Value: categories.values[i]})
	}
	sort.SliceStable(categorySales, func(i, j int) bool {
		return categorySales[i].Value.GreaterThan(categorySales[j].Value)
	})

	topProducts := make([]domain.ProductSale, 0, len(products.keys))
	for i, name := range products.keys {
		topProducts = append(topProducts, domain.ProductSale{ItemName: name, Quantity: products.values[i]})
	}
	sort.SliceStable(topProducts, func(i, j int) bool {
		return topProducts[i].Quantity > topProducts[j].Quantity
	})
	if len(topProducts) > TopProductsLimit {
		topProducts = topProducts[:TopProductsLimit]
	}

	return domain.DashboardMetrics{
		TotalCustomers:     len(customers),
		DailySales:         dailySales,
		TodayCOGS:          todayCOGS,
		TodayExpenses:      todayExpenses,
		NetProfit:          dailySales.Sub(todayCOGS).Sub(todayExpenses),
		RecentTransactions: recentTransactions(payments),
		ProfitTrend:        trend.Points(),
		CategorySales:      categorySales,
		TopProducts:        topProducts,
		LowStockItems:      lowStockItems(inventory, globalThreshold),
	}
}

func lowStockItems(inventory []domain.InventoryRecord, globalThreshold int) []domain.LowStockItem {
	items := make([]domain.LowStockItem, 0, LowStockLimit)
	for _, inv := range inventory {
		threshold := ResolveThreshold(inv, globalThreshold)
		if !IsLowStock(inv.CurrentStock, threshold) {
			continue
		}
		items = append(items, domain.LowStockItem{
			ID:        inv.ItemID,
			ItemName:  inv.ItemName,
			Stock:     inv.CurrentStock,
			Threshold: threshold,
		})
		if len(items) == LowStockLimit {
			break
		}
	}
	return items
}

func recentTransactions(payments []domain.PaymentRecord) []domain.PaymentRecord {
	sorted := make([]domain.PaymentRecord, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TransactionTime.After(sorted[j].TransactionTime)
	})
	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}
	return sorted
}

// cogsQuantity treats a missing (zero) quantity as one unit so the line's
// cost is not dropped.
func cogsQuantity(q int) int {
	if q == 0 {
		return 1
	}
	return q
}

// customerKey folds missing and blank names into a single bucket.
func customerKey(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return name
}

func categoryKey(category string) string {
	if strings.TrimSpace(category) == "" {
		return UncategorizedLabel
	}
	return category
}

// ranking sums values per key, remembering first-encounter order so that a
// stable sort breaks ties by input order.
type ranking[V any] struct {
	index  map[string]int
	keys   []string
	values []V
}

func newRanking[V any]() *ranking[V] {
	return &ranking[V]{index: make(map[string]int)}
}

func (r *ranking[V]) slot(key string) *V {
	i, ok := r.index[key]
	if !ok {
		i = len(r.keys)
		r.index[key] = i
		r.keys = append(r.keys, key)
		var zero V
		r.values = append(r.values, zero)
	}
	return &r.values[i]
}
