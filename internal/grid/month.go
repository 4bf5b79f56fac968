package grid

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a calendar month independent of any day or clock value.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "2006-01" values.
func ParseMonth(value string) (Month, error) {
	ts, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return Month{}, fmt.Errorf("grid: invalid month %q: %w", value, err)
	}
	return MonthOf(ts), nil
}

// First returns midnight of the first day of the month in loc.
func (m Month) First(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Next returns the following month. Navigation never skips a month.
func (m Month) Next() Month {
	return MonthOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// Previous returns the preceding month.
func (m Month) Previous() Month {
	return MonthOf(time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// Days reports how many days the month has.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Title renders the month heading, e.g. "January 2025".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// String renders the month as "2006-01".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
