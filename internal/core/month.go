// Package core holds the ledger domain: months, transactions and their
// payment-confirmation rules.
//
// This file contains month-granular calendar helpers. Every business rule in
// the ledger compares months, never days, so all dates that take part in a
// comparison go through TruncateToMonth first.
package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// Month is a calendar month anchored at the first day, 00:00 UTC.
// The zero value means "no month".
type Month struct {
	time.Time
}

// NewMonth returns the month for the given year and calendar month.
func NewMonth(year int, month time.Month) Month {
	return Month{Time: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// TruncateToMonth keeps the year and month of t as seen in t's own location
// and anchors the result at the first day of the month in UTC.
func TruncateToMonth(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// MonthIn converts t to loc before truncating. Use it only where the current
// month is derived from a wall clock.
func MonthIn(t time.Time, loc *time.Location) Month {
	if loc == nil {
		loc = time.UTC
	}
	return TruncateToMonth(t.In(loc))
}

// ParseMonth accepts "YYYY-MM" or "YYYY-MM-DD". The day, when present, must be
// a valid calendar day but is otherwise discarded.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Month{}, fmt.Errorf("%w: empty date", ErrInvalidPaymentDate)
	}
	layout := monthLayout
	if len(s) > len(monthLayout) {
		layout = dayLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidPaymentDate, s)
	}
	return TruncateToMonth(t), nil
}

// ParseDay parses a "YYYY-MM-DD" date at day precision (UTC).
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// IsZero reports whether m is the absent month.
func (m Month) IsZero() bool {
	return m.Time.IsZero()
}

// String renders the month as YYYY-MM.
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.Format(monthLayout)
}

// MarshalJSON encodes the month as "YYYY-MM", or null when absent.
func (m Month) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM", "YYYY-MM-DD" or null.
func (m *Month) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AddMonths moves m by n calendar months (n may be negative).
func (m Month) AddMonths(n int) Month {
	return Month{Time: m.Time.AddDate(0, n, 0)}
}

// Before reports whether m is strictly before o.
func (m Month) Before(o Month) bool { return CompareMonths(m, o) < 0 }

// After reports whether m is strictly after o.
func (m Month) After(o Month) bool { return CompareMonths(m, o) > 0 }

// Equal reports whether m and o are the same calendar month.
func (m Month) Equal(o Month) bool { return CompareMonths(m, o) == 0 }

// index counts months since year 0; it makes comparisons and differences
// independent of day or location.
func (m Month) index() int {
	return m.Year()*12 + int(m.Month()) - 1
}

// CompareMonths returns -1 when a is before b, 0 when they are the same month
// and +1 when a is after b.
func CompareMonths(a, b Month) int {
	ai, bi := a.index(), b.index()
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

// AddMonths is the function form of Month.AddMonths.
func AddMonths(m Month, n int) Month {
	return m.AddMonths(n)
}

// MonthsBetween returns the absolute number of calendar months between a and b.
func MonthsBetween(a, b Month) int {
	d := a.index() - b.index()
	if d < 0 {
		return -d
	}
	return d
}

// PaidInstallmentsFromConfirmation derives how many installments are paid from
// the most recent confirmation. Confirmations are only ever appended at the
// frontier, so the latest month fully determines the count.
func PaidInstallmentsFromConfirmation(firstInstallmentAt Month, lastConfirmation *Month) int {
	if lastConfirmation == nil || lastConfirmation.IsZero() {
		return 0
	}
	return MonthsBetween(firstInstallmentAt, *lastConfirmation) + 1
}
