package dashboard_test

import (
	"testing"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/dashboard"
	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
)

func TestNewBucketIndex_ThirtyContiguousDays(t *testing.T) {
	idx := dashboard.NewBucketIndex(today)
	buckets := idx.Buckets()

	if len(buckets) != dashboard.TrendDays {
		t.Fatalf("expected %d buckets, got %d", dashboard.TrendDays, len(buckets))
	}
	for i := 1; i < len(buckets); i++ {
		prev, _ := time.Parse("2006-01-02", buckets[i-1].Date)
		cur, _ := time.Parse("2006-01-02", buckets[i].Date)
		if cur.Sub(prev) != 24*time.Hour {
			t.Errorf("expected contiguous days, got %s then %s", buckets[i-1].Date, buckets[i].Date)
		}
		if !buckets[i].Revenue.IsZero() || !buckets[i].Cost.IsZero() || !buckets[i].Expense.IsZero() {
			t.Errorf("expected zeroed bucket on %s", buckets[i].Date)
		}
	}
	if buckets[len(buckets)-1].Date != "2026-03-15" {
		t.Errorf("expected newest bucket to be today, got %s", buckets[len(buckets)-1].Date)
	}
}

func TestNewBucketIndex_AcrossDaylightSavingChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	// DST starts 2026-03-08 in New York
	now := time.Date(2026, time.March, 20, 0, 30, 0, 0, loc)

	idx := dashboard.NewBucketIndex(now)
	buckets := idx.Buckets()

	if buckets[0].Date != "2026-02-19" || buckets[len(buckets)-1].Date != "2026-03-20" {
		t.Errorf("unexpected window %s..%s", buckets[0].Date, buckets[len(buckets)-1].Date)
	}
	seen := make(map[string]bool)
	for _, b := range buckets {
		if seen[b.Date] {
			t.Errorf("duplicate bucket %s", b.Date)
		}
		seen[b.Date] = true
	}
}

func TestBucketIndex_Lookup(t *testing.T) {
	idx := dashboard.NewBucketIndex(today)

	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"today", today, "2026-03-15"},
		{"oldest day", today.AddDate(0, 0, -29), "2026-02-14"},
		{"just outside", today.AddDate(0, 0, -30), ""},
		{"future", today.AddDate(0, 0, 1), ""},
		{"zero time", time.Time{}, ""},
		{"other zone same day", time.Date(2026, time.March, 15, 23, 0, 0, 0, time.FixedZone("X", -2*3600)), ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := idx.Lookup(tc.at)
			switch {
			case tc.want == "" && b != nil:
				t.Errorf("expected no bucket, got %s", b.Date)
			case tc.want != "" && b == nil:
				t.Errorf("expected bucket %s, got none", tc.want)
			case tc.want != "" && b.Date != tc.want:
				t.Errorf("expected bucket %s, got %s", tc.want, b.Date)
			}
		})
	}
}

func TestResolveThreshold(t *testing.T) {
	override := 3
	zero := 0

	if got := dashboard.ResolveThreshold(domain.InventoryRecord{LowStockThreshold: &override}, 10); got != 3 {
		t.Errorf("expected per-item override 3, got %d", got)
	}
	if got := dashboard.ResolveThreshold(domain.InventoryRecord{LowStockThreshold: &zero}, 10); got != 0 {
		t.Errorf("expected explicit zero override to win, got %d", got)
	}
	if got := dashboard.ResolveThreshold(domain.InventoryRecord{}, 12); got != 12 {
		t.Errorf("expected global default 12, got %d", got)
	}
}

func TestGlobalThreshold_FallsBackToTen(t *testing.T) {
	if got := dashboard.GlobalThreshold(0, false); got != 10 {
		t.Errorf("expected literal default 10, got %d", got)
	}
	if got := dashboard.GlobalThreshold(25, true); got != 25 {
		t.Errorf("expected configured 25, got %d", got)
	}
}

func TestIsLowStock_IsStrict(t *testing.T) {
	if dashboard.IsLowStock(5, 5) {
		t.Error("stock equal to threshold must not be low")
	}
	if !dashboard.IsLowStock(4, 5) {
		t.Error("stock one below threshold must be low")
	}
}
