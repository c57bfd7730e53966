package schema

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar date representation.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t, as seen in t's own location,
// encoded as midnight UTC so dates compare and subtract exactly.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole days from a to b for calendar dates.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Float returns a pointer to v, for optional values.
func Float(v float64) *float64 {
	return &v
}
