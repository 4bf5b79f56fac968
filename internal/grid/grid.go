// Package grid builds the fixed six-week month view of the calendar.
package grid

import (
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
)

const (
	// DaysPerWeek is the number of columns in the grid.
	DaysPerWeek = 7
	// Weeks is the number of rows in the grid.
	Weeks = 6
	// Cells is the total number of days emitted by Build.
	Cells = Weeks * DaysPerWeek
)

// DaySource resolves the appointments starting on a given day.
type DaySource interface {
	ForDate(date time.Time) []calendar.Appointment
}

type options struct {
	weekStart time.Weekday
	now       func() time.Time
}

// Option customises Build.
type Option func(*options)

// WithWeekStart sets the weekday occupying the first column. Sunday is the default.
func WithWeekStart(day time.Weekday) Option {
	return func(o *options) {
		o.weekStart = day
	}
}

// WithNow injects the clock used to flag today's cell.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Build returns the 42 consecutive days covering the month of reference,
// starting on the most recent week start on or before the first of the month.
// Dates are produced in reference's location.
func Build(reference, selected time.Time, source DaySource, opts ...Option) []calendar.CalendarDay {
	cfg := options{weekStart: time.Sunday, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	first := calendar.StartOfMonth(reference)
	start := first.AddDate(0, 0, -leadingDays(first.Weekday(), cfg.weekStart))
	today := cfg.now()

	days := make([]calendar.CalendarDay, 0, Cells)
	for i := 0; i < Cells; i++ {
		date := time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, start.Location())

		var appointments []calendar.Appointment
		if source != nil {
			appointments = source.ForDate(date)
		}

		days = append(days, calendar.CalendarDay{
			Date:           date,
			Appointments:   appointments,
			IsCurrentMonth: date.Year() == first.Year() && date.Month() == first.Month(),
			IsToday:        calendar.SameDay(date, today),
			IsSelected:     !selected.IsZero() && calendar.SameDay(date, selected),
		})
	}
	return days
}

// leadingDays counts the days between the week start and day.
func leadingDays(day, weekStart time.Weekday) int {
	return (int(day) - int(weekStart) + DaysPerWeek) % DaysPerWeek
}

// Weekdays returns the column headers ("Sun", "Mon", ...) for the given week start.
func Weekdays(weekStart time.Weekday) []string {
	out := make([]string, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		out = append(out, time.Weekday((int(weekStart)+i)%DaysPerWeek).String()[:3])
	}
	return out
}
