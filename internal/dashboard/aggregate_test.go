package dashboard_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/dashboard"
	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"

	"github.com/shopspring/decimal"
)

var today = time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("expected %s=%s, got %s", field, want, got.String())
	}
}

func TestAggregate_Scenario(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)

	payments := []domain.PaymentRecord{
		{InvoiceNo: "A", CustomerName: "Ana", GrandTotal: dec("100"), TransactionTime: today},
		{InvoiceNo: "B", CustomerName: "Budi", GrandTotal: dec("50"), TransactionTime: yesterday},
	}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "A", ItemName: "Iced Tea", Category: "Drinks", CostPrice: dec("40"), TotalPrice: dec("100"), Quantity: 1},
	}
	inventory := []domain.InventoryRecord{
		{ItemID: "1", ItemName: "Iced Tea", CurrentStock: 3, LowStockThreshold: intPtr(5)},
	}

	m := dashboard.Aggregate(payments, lineItems, nil, inventory, today, dashboard.DefaultLowStockThreshold)

	assertDecimal(t, "dailySales", m.DailySales, "100")
	assertDecimal(t, "todayCOGS", m.TodayCOGS, "40")
	assertDecimal(t, "todayExpenses", m.TodayExpenses, "0")
	assertDecimal(t, "netProfit", m.NetProfit, "60")

	if len(m.CategorySales) != 1 || m.CategorySales[0].Name != "Drinks" {
		t.Fatalf("expected a single Drinks category, got %+v", m.CategorySales)
	}
	assertDecimal(t, "categorySales[0].value", m.CategorySales[0].Value, "100")

	want := []domain.LowStockItem{{ID: "1", ItemName: "Iced Tea", Stock: 3, Threshold: 5}}
	if !reflect.DeepEqual(m.LowStockItems, want) {
		t.Errorf("expected lowStockItems %+v, got %+v", want, m.LowStockItems)
	}
	if m.TotalCustomers != 2 {
		t.Errorf("expected 2 customers, got %d", m.TotalCustomers)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	payments := []domain.PaymentRecord{
		{InvoiceNo: "A", CustomerName: "Ana", GrandTotal: dec("10.50"), TransactionTime: today},
		{InvoiceNo: "B", CustomerName: "Budi", GrandTotal: dec("20.25"), TransactionTime: today.Add(-time.Hour)},
		{InvoiceNo: "C", CustomerName: "Citra", GrandTotal: dec("5"), TransactionTime: today.AddDate(0, 0, -3)},
	}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "A", ItemName: "Coffee", Category: "Drinks", CostPrice: dec("2"), TotalPrice: dec("10.50"), Quantity: 3},
		{InvoiceNo: "B", ItemName: "Bread", Category: "Bakery", CostPrice: dec("1.1"), TotalPrice: dec("20.25"), Quantity: 5},
		{InvoiceNo: "C", ItemName: "Soap", CostPrice: dec("1"), TotalPrice: dec("5"), Quantity: 1},
	}
	expenses := []domain.ExpenseRecord{
		{Amount: dec("3"), TransactionDate: today},
	}
	inventory := []domain.InventoryRecord{
		{ItemID: "1", ItemName: "Coffee", CurrentStock: 2},
		{ItemID: "2", ItemName: "Bread", CurrentStock: 40},
	}

	first := dashboard.Aggregate(payments, lineItems, expenses, inventory, today, 10)
	second := dashboard.Aggregate(payments, lineItems, expenses, inventory, today, 10)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical snapshots\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAggregate_TrendAlwaysHasThirtyPoints(t *testing.T) {
	cases := map[string][]domain.PaymentRecord{
		"no input": nil,
		"sparse": {
			{InvoiceNo: "A", GrandTotal: dec("10"), TransactionTime: today.AddDate(0, 0, -12)},
		},
		"outside window": {
			{InvoiceNo: "A", GrandTotal: dec("10"), TransactionTime: today.AddDate(0, 0, -45)},
		},
	}

	for name, payments := range cases {
		t.Run(name, func(t *testing.T) {
			m := dashboard.Aggregate(payments, nil, nil, nil, today, 10)
			if len(m.ProfitTrend) != dashboard.TrendDays {
				t.Fatalf("expected %d trend points, got %d", dashboard.TrendDays, len(m.ProfitTrend))
			}
			if last := m.ProfitTrend[len(m.ProfitTrend)-1].Date; last != "2026-03-15" {
				t.Errorf("expected last trend date 2026-03-15, got %s", last)
			}
			if first := m.ProfitTrend[0].Date; first != "2026-02-14" {
				t.Errorf("expected first trend date 2026-02-14, got %s", first)
			}
		})
	}
}

func TestAggregate_TrendAccumulatesAndRounds(t *testing.T) {
	twoDaysAgo := today.AddDate(0, 0, -2)
	payments := []domain.PaymentRecord{
		{InvoiceNo: "A", GrandTotal: dec("10.005"), TransactionTime: twoDaysAgo},
		{InvoiceNo: "B", GrandTotal: dec("4.999"), TransactionTime: twoDaysAgo.Add(time.Hour)},
	}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "A", ItemName: "Tea", CostPrice: dec("1.5"), TotalPrice: dec("10.005"), Quantity: 2},
	}
	expenses := []domain.ExpenseRecord{
		{Amount: dec("2"), TransactionDate: twoDaysAgo},
		{Amount: dec("99"), TransactionDate: today.AddDate(0, 0, -60)},
	}

	m := dashboard.Aggregate(payments, lineItems, expenses, nil, today, 10)

	point := m.ProfitTrend[dashboard.TrendDays-3]
	if point.Date != "2026-03-13" {
		t.Fatalf("expected 2026-03-13, got %s", point.Date)
	}
	// revenue 15.004 -> 15.00; profit 15.004 - 3 - 2 = 10.004 -> 10.00
	assertDecimal(t, "revenue", point.Revenue, "15")
	assertDecimal(t, "profit", point.Profit, "10")

	for _, p := range m.ProfitTrend {
		if p.Date == point.Date {
			continue
		}
		if !p.Revenue.IsZero() || !p.Profit.IsZero() {
			t.Errorf("expected empty bucket on %s, got revenue=%s profit=%s", p.Date, p.Revenue, p.Profit)
		}
	}
}

func TestAggregate_LineItemsBorrowTheirOwnInvoiceDate(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)
	payments := []domain.PaymentRecord{
		{InvoiceNo: "TODAY", GrandTotal: dec("30"), TransactionTime: today},
		{InvoiceNo: "YDAY", GrandTotal: dec("80"), TransactionTime: yesterday},
	}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "TODAY", ItemName: "Tea", CostPrice: dec("10"), TotalPrice: dec("30"), Quantity: 1},
		{InvoiceNo: "YDAY", ItemName: "Cake", CostPrice: dec("25"), TotalPrice: dec("80"), Quantity: 2},
	}

	m := dashboard.Aggregate(payments, lineItems, nil, nil, today, 10)

	assertDecimal(t, "dailySales", m.DailySales, "30")
	assertDecimal(t, "todayCOGS", m.TodayCOGS, "10")

	yPoint := m.ProfitTrend[dashboard.TrendDays-2]
	// 80 - 25*2
	assertDecimal(t, "yesterday profit", yPoint.Profit, "30")
}

func TestAggregate_OrphanLineItemsContributeNothing(t *testing.T) {
	payments := []domain.PaymentRecord{
		{InvoiceNo: "A", GrandTotal: dec("10"), TransactionTime: today},
	}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "A", ItemName: "Tea", Category: "Drinks", CostPrice: dec("2"), TotalPrice: dec("10"), Quantity: 1},
		{InvoiceNo: "GHOST", ItemName: "Ghost", Category: "Phantom", CostPrice: dec("500"), TotalPrice: dec("900"), Quantity: 50},
	}

	m := dashboard.Aggregate(payments, lineItems, nil, nil, today, 10)

	assertDecimal(t, "todayCOGS", m.TodayCOGS, "2")
	for _, c := range m.CategorySales {
		if c.Name == "Phantom" {
			t.Errorf("orphan category leaked into categorySales: %+v", c)
		}
	}
	for _, p := range m.TopProducts {
		if p.ItemName == "Ghost" {
			t.Errorf("orphan product leaked into topProducts: %+v", p)
		}
	}
	assertDecimal(t, "today profit", m.ProfitTrend[dashboard.TrendDays-1].Profit, "8")
}

func TestAggregate_DayBoundaries(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2026, time.March, 15, 9, 0, 0, 0, loc)
	start := time.Date(2026, time.March, 15, 0, 0, 0, 0, loc)

	payments := []domain.PaymentRecord{
		{InvoiceNo: "start", GrandTotal: dec("1"), TransactionTime: start},
		{InvoiceNo: "end", GrandTotal: dec("2"), TransactionTime: start.Add(24*time.Hour - time.Nanosecond)},
		{InvoiceNo: "before", GrandTotal: dec("4"), TransactionTime: start.Add(-time.Nanosecond)},
		{InvoiceNo: "next", GrandTotal: dec("8"), TransactionTime: start.Add(24 * time.Hour)},
		// 2026-03-14T20:00Z is 03:00 on the 15th in WIB
		{InvoiceNo: "utc", GrandTotal: dec("16"), TransactionTime: time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)},
	}

	m := dashboard.Aggregate(payments, nil, nil, nil, now, 10)

	assertDecimal(t, "dailySales", m.DailySales, "19")
}

func TestAggregate_ExpensesAreTodayScoped(t *testing.T) {
	expenses := []domain.ExpenseRecord{
		{Amount: dec("12.5"), TransactionDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{Amount: dec("7"), TransactionDate: time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)},
		{Amount: dec("100")},
	}

	m := dashboard.Aggregate(nil, nil, expenses, nil, today, 10)

	assertDecimal(t, "todayExpenses", m.TodayExpenses, "12.5")
	assertDecimal(t, "netProfit", m.NetProfit, "-12.5")
}

func TestAggregate_CogsDefaultsMissingQuantityToOne(t *testing.T) {
	payments := []domain.PaymentRecord{{InvoiceNo: "A", GrandTotal: dec("20"), TransactionTime: today}}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "A", ItemName: "Tea", CostPrice: dec("6"), TotalPrice: dec("20")},
	}

	m := dashboard.Aggregate(payments, lineItems, nil, nil, today, 10)

	assertDecimal(t, "todayCOGS", m.TodayCOGS, "6")
	if len(m.TopProducts) != 1 || m.TopProducts[0].Quantity != 0 {
		t.Errorf("expected product quantity to stay 0, got %+v", m.TopProducts)
	}
}

func TestAggregate_TotalCustomersCountsBlankAsOneBucket(t *testing.T) {
	payments := []domain.PaymentRecord{
		{InvoiceNo: "1", CustomerName: "Ana", TransactionTime: today},
		{InvoiceNo: "2", CustomerName: "Ana", TransactionTime: today},
		{InvoiceNo: "3", CustomerName: "", TransactionTime: today},
		{InvoiceNo: "4", CustomerName: "   ", TransactionTime: today},
		{InvoiceNo: "5", CustomerName: "Budi", TransactionTime: today.AddDate(0, -6, 0)},
	}

	m := dashboard.Aggregate(payments, nil, nil, nil, today, 10)

	// Ana, Budi and the blank bucket
	if m.TotalCustomers != 3 {
		t.Errorf("expected 3 customers, got %d", m.TotalCustomers)
	}
}

func TestAggregate_CategoryAndProductRanking(t *testing.T) {
	old := today.AddDate(0, 0, -90)
	payments := []domain.PaymentRecord{
		{InvoiceNo: "A", GrandTotal: dec("1"), TransactionTime: today},
		{InvoiceNo: "B", GrandTotal: dec("1"), TransactionTime: old},
	}
	lineItems := []domain.LineItemRecord{
		{InvoiceNo: "A", ItemName: "p1", Category: "Snacks", TotalPrice: dec("5"), Quantity: 2},
		{InvoiceNo: "A", ItemName: "p2", Category: "", TotalPrice: dec("5"), Quantity: 2},
		{InvoiceNo: "B", ItemName: "p3", Category: "Drinks", TotalPrice: dec("9"), Quantity: 9},
		{InvoiceNo: "B", ItemName: "p4", Category: "Snacks", TotalPrice: dec("1"), Quantity: 1},
		{InvoiceNo: "A", ItemName: "p5", Category: "Frozen", TotalPrice: dec("2"), Quantity: 2},
		{InvoiceNo: "A", ItemName: "p6", Category: "Frozen", TotalPrice: dec("1"), Quantity: 2},
		{InvoiceNo: "A", ItemName: "p1", Category: "Snacks", TotalPrice: dec("0"), Quantity: 1},
	}

	m := dashboard.Aggregate(payments, lineItems, nil, nil, today, 10)

	wantCats := []string{"Drinks", "Snacks", dashboard.UncategorizedLabel, "Frozen"}
	if len(m.CategorySales) != len(wantCats) {
		t.Fatalf("expected %d categories, got %+v", len(wantCats), m.CategorySales)
	}
	for i, name := range wantCats {
		if m.CategorySales[i].Name != name {
			t.Errorf("expected category %d to be %s, got %s", i, name, m.CategorySales[i].Name)
		}
	}
	// Snacks sums across dates: 5 + 1 + 0
	assertDecimal(t, "Snacks", m.CategorySales[1].Value, "6")

	// p3=9, p1=3, then p2/p5/p6 tie at 2 in encounter order; p4 drops out
	wantProducts := []domain.ProductSale{
		{ItemName: "p3", Quantity: 9},
		{ItemName: "p1", Quantity: 3},
		{ItemName: "p2", Quantity: 2},
		{ItemName: "p5", Quantity: 2},
		{ItemName: "p6", Quantity: 2},
	}
	if !reflect.DeepEqual(m.TopProducts, wantProducts) {
		t.Errorf("expected topProducts %+v, got %+v", wantProducts, m.TopProducts)
	}
}

func TestAggregate_LowStockBoundaryAndLimit(t *testing.T) {
	inventory := []domain.InventoryRecord{
		{ItemID: "eq", CurrentStock: 5, LowStockThreshold: intPtr(5)},
		{ItemID: "below", CurrentStock: 4, LowStockThreshold: intPtr(5)},
		{ItemID: "g1", CurrentStock: 0},
		{ItemID: "g-eq", CurrentStock: 7},
		{ItemID: "g2", CurrentStock: 1},
		{ItemID: "g3", CurrentStock: 2},
		{ItemID: "g4", CurrentStock: 3},
		{ItemID: "g5", CurrentStock: 6},
	}

	m := dashboard.Aggregate(nil, nil, nil, inventory, today, 7)

	wantIDs := []string{"below", "g1", "g2", "g3", "g4"}
	if len(m.LowStockItems) != len(wantIDs) {
		t.Fatalf("expected %d low stock items, got %+v", len(wantIDs), m.LowStockItems)
	}
	for i, id := range wantIDs {
		if m.LowStockItems[i].ID != id {
			t.Errorf("expected low stock item %d to be %s, got %s", i, id, m.LowStockItems[i].ID)
		}
	}
	if m.LowStockItems[1].Threshold != 7 {
		t.Errorf("expected global threshold 7, got %d", m.LowStockItems[1].Threshold)
	}
}

func TestAggregate_RecentTransactions(t *testing.T) {
	var payments []domain.PaymentRecord
	for i := 0; i < 7; i++ {
		payments = append(payments, domain.PaymentRecord{
			InvoiceNo:       string(rune('A' + i)),
			TransactionTime: today.Add(time.Duration(i%4) * time.Minute),
		})
	}

	m := dashboard.Aggregate(payments, nil, nil, nil, today, 10)

	if len(m.RecentTransactions) != dashboard.RecentLimit {
		t.Fatalf("expected %d recent transactions, got %d", dashboard.RecentLimit, len(m.RecentTransactions))
	}
	// minutes: A0 B1 C2 D3 E0 F1 G2 -> D, C, G, B, F
	want := []string{"D", "C", "G", "B", "F"}
	for i, inv := range want {
		if m.RecentTransactions[i].InvoiceNo != inv {
			t.Errorf("expected recent[%d]=%s, got %s", i, inv, m.RecentTransactions[i].InvoiceNo)
		}
	}
	if payments[0].InvoiceNo != "A" {
		t.Error("expected input payments to be left untouched")
	}
}
