package supabase

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PostgREST sends numeric columns as JSON numbers or strings depending on
// type and settings. Malformed or null values decode as zero.

type flexDecimal struct{ decimal.Decimal }

func (d *flexDecimal) UnmarshalJSON(b []byte) error {
	d.Decimal = decimal.Zero
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	s = strings.ReplaceAll(s, ",", "")
	if v, err := decimal.NewFromString(s); err == nil {
		d.Decimal = v
	}
	return nil
}

type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	*n = 0
	if v, ok := parseInt(b); ok {
		*n = flexInt(v)
	}
	return nil
}

// optionalInt keeps null distinct from zero.
type optionalInt struct {
	Value *int
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	o.Value = nil
	if v, ok := parseInt(b); ok {
		o.Value = &v
	}
	return nil
}

func parseInt(b []byte) (int, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if fv, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(fv) && math.Abs(fv) <= math.MaxInt32 {
		return int(fv), true
	}
	return 0, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
}

// parseTimestamp parses a timestamptz column. Zone-less values are read in
// loc. Unparseable values give the zero time.
func parseTimestamp(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return parseDate(s, loc)
}

// parseDate parses a date column as midnight in loc.
func parseDate(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		s = s[:10]
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// flexString accepts string or numeric ids.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	*s = flexString(strings.Trim(string(b), `"`))
	return nil
}
