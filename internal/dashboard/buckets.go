package dashboard

import (
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/shopspring/decimal"
)

// TrendDays is the length of the rolling profit trend, ending today.
const TrendDays = 30

const dateLayout = "2006-01-02"

// Bucket accumulates one calendar day of the trend.
type Bucket struct {
	Date    string
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Expense decimal.Decimal
}

// BucketIndex is the fixed 30-day calendar index used for trend accumulation.
type BucketIndex struct {
	loc    *time.Location
	order  []*Bucket
	byDate map[string]*Bucket
}

// NewBucketIndex builds zeroed buckets for the TrendDays contiguous days
// ending on and including today, oldest first. Days are calendar days in
// today's location.
func NewBucketIndex(today time.Time) *BucketIndex {
	loc := today.Location()
	start := startOfDay(today).AddDate(0, 0, -(TrendDays - 1))

	idx := &BucketIndex{
		loc:    loc,
		order:  make([]*Bucket, 0, TrendDays),
		byDate: make(map[string]*Bucket, TrendDays),
	}
	for i := 0; i < TrendDays; i++ {
		key := start.AddDate(0, 0, i).Format(dateLayout)
		b := &Bucket{Date: key, Revenue: decimal.Zero, Cost: decimal.Zero, Expense: decimal.Zero}
		idx.order = append(idx.order, b)
		idx.byDate[key] = b
	}
	return idx
}

// Lookup returns the bucket of t's calendar day, or nil when t is unset or
// falls outside the window.
func (idx *BucketIndex) Lookup(t time.Time) *Bucket {
	if t.IsZero() {
		return nil
	}
	return idx.byDate[DayKey(t, idx.loc)]
}

// Buckets returns the buckets oldest to newest.
func (idx *BucketIndex) Buckets() []*Bucket {
	return idx.order
}

// Points renders the trend. Profit is revenue minus cost minus expense;
// revenue and profit are rounded to 2 decimal places.
func (idx *BucketIndex) Points() []domain.TrendPoint {
	points := make([]domain.TrendPoint, 0, len(idx.order))
	for _, b := range idx.order {
		profit := b.Revenue.Sub(b.Cost).Sub(b.Expense)
		points = append(points, domain.TrendPoint{
			Date:    b.Date,
			Revenue: b.Revenue.Round(2),
			Profit:  profit.Round(2),
		})
	}
	return points
}

// DayKey formats t's calendar day in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
