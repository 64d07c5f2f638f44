package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Dashboard metrics (derived, rebuilt on every aggregation)
// ============================================================

// DashboardMetrics is the analytics snapshot rendered by the admin console.
type DashboardMetrics struct {
	TotalCustomers     int             `json:"totalCustomers"`
	DailySales         decimal.Decimal `json:"dailySales"`
	TodayCOGS          decimal.Decimal `json:"todayCogs"`
	TodayExpenses      decimal.Decimal `json:"todayExpenses"`
	NetProfit          decimal.Decimal `json:"netProfit"`
	RecentTransactions []PaymentRecord `json:"recentTransactions"`
	ProfitTrend        []TrendPoint    `json:"profitTrend"`
	CategorySales      []CategorySale  `json:"categorySales"`
	TopProducts        []ProductSale   `json:"topProducts"`
	LowStockItems      []LowStockItem  `json:"lowStockItems"`
}

// TrendPoint is one day of the 30-day profit trend.
type TrendPoint struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// CategorySale is the summed line-item value of one category.
type CategorySale struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// ProductSale is the summed quantity sold of one product.
type ProductSale struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// LowStockItem is an inventory row below its resolved threshold.
type LowStockItem struct {
	ID        string `json:"id"`
	ItemName  string `json:"itemName"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// Snapshot pairs a metrics value with the time it was fetched.
type Snapshot struct {
	Metrics   DashboardMetrics `json:"metrics"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// FetchState is the lifecycle state of a dashboard fetch run.
type FetchState string

const (
	FetchIdle      FetchState = "idle"
	FetchFetching  FetchState = "fetching"
	FetchSucceeded FetchState = "succeeded"
	FetchTimedOut  FetchState = "timed_out"
	FetchCancelled FetchState = "cancelled"
	FetchFailed    FetchState = "failed"
)

// DashboardStatus is the isLoading/error pair observed by the console,
// together with the last good snapshot.
type DashboardStatus struct {
	IsLoading bool       `json:"isLoading"`
	State     FetchState `json:"state"`
	Error     string     `json:"error,omitempty"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	Snapshot  *Snapshot  `json:"-"`
}

// DashboardResponse is returned by GET /v1/dashboard/metrics.
type DashboardResponse struct {
	Metrics   *DashboardMetrics `json:"metrics"`
	FetchedAt time.Time         `json:"fetchedAt"`
	Stale     bool              `json:"stale"`
	Error     string            `json:"error,omitempty"`
}

// LowStockSetting is the global default low-stock threshold of a store.
type LowStockSetting struct {
	StoreID   string `json:"store_id"`
	Threshold int    `json:"threshold"`
	IsDefault bool   `json:"is_default"`
}

// PipelineMetrics summarises fetch pipeline health since process start.
type PipelineMetrics struct {
	TotalRuns     int64   `json:"totalRuns"`
	Succeeded     int64   `json:"succeeded"`
	TimedOut      int64   `json:"timedOut"`
	Cancelled     int64   `json:"cancelled"`
	Failed        int64   `json:"failed"`
	Supersessions int64   `json:"supersessions"`
	ErrorRate     float64 `json:"errorRate"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	Period        string  `json:"period"`
}
