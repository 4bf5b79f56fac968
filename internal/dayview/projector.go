// Package dayview projects a single day's appointments onto an hourly schedule.
package dayview

import (
	"fmt"
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
)

const (
	// HoursPerDay is the number of rows in the day schedule.
	HoursPerDay = 24
	// DefaultUnitSize is the rendered height of one hour.
	DefaultUnitSize = 60.0
	// DefaultMinimumUnitSize is the floor applied to block heights.
	DefaultMinimumUnitSize = 30.0
)

// DaySource resolves the appointments starting on a given day.
type DaySource interface {
	ForDate(date time.Time) []calendar.Appointment
}

// Offset positions an appointment block inside its starting hour row.
type Offset struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// HourRow is one row of the rendered day schedule.
type HourRow struct {
	Hour         int                    `json:"hour"`
	Label        string                 `json:"label"`
	Appointments []calendar.Appointment `json:"appointments"`
	Active       bool                   `json:"active"`
}

// Option customises a Projector.
type Option func(*Projector)

// WithUnitSize overrides the per-hour height.
func WithUnitSize(size float64) Option {
	return func(p *Projector) {
		if size > 0 {
			p.unitSize = size
		}
	}
}

// WithMinimumUnitSize overrides the minimum block height.
func WithMinimumUnitSize(size float64) Option {
	return func(p *Projector) {
		if size > 0 {
			p.minimumUnitSize = size
		}
	}
}

// Projector answers per-hour questions about one day.
type Projector struct {
	date            time.Time
	appointments    []calendar.Appointment
	unitSize        float64
	minimumUnitSize float64
}

// New loads the appointments starting on date from source.
func New(date time.Time, source DaySource, opts ...Option) *Projector {
	p := &Projector{
		date:            calendar.StartOfDay(date),
		unitSize:        DefaultUnitSize,
		minimumUnitSize: DefaultMinimumUnitSize,
	}
	if source != nil {
		p.appointments = source.ForDate(date)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Date returns midnight of the projected day.
func (p *Projector) Date() time.Time {
	return p.date
}

// Appointments returns every appointment of the day.
func (p *Projector) Appointments() []calendar.Appointment {
	return calendar.CloneAll(p.appointments)
}

// AppointmentsStartingAt returns the day's appointments whose start hour is h.
func (p *Projector) AppointmentsStartingAt(h int) []calendar.Appointment {
	if !validHour(h) {
		return nil
	}
	var out []calendar.Appointment
	for _, appt := range p.appointments {
		if appt.Start.Hour() == h {
			out = append(out, appt.Clone())
		}
	}
	return out
}

// HasActivityAt reports whether an appointment starts during hour h or is
// already running when hour h begins.
func (p *Projector) HasActivityAt(h int) bool {
	if !validHour(h) {
		return false
	}
	for _, appt := range p.appointments {
		if appt.Start.Hour() == h {
			return true
		}
		mark := calendar.AtHour(appt.Start, h)
		if appt.Start.Before(mark) && appt.End.After(mark) {
			return true
		}
	}
	return false
}

// LayoutOffset computes the block position of appt relative to its start hour.
func (p *Projector) LayoutOffset(appt calendar.Appointment) Offset {
	hours := appt.End.Sub(appt.Start).Hours()
	height := hours * p.unitSize
	if height < p.minimumUnitSize {
		height = p.minimumUnitSize
	}
	return Offset{
		Top:    float64(appt.Start.Minute()),
		Height: height,
	}
}

// Rows returns the 24 hour rows of the day schedule.
func (p *Projector) Rows() []HourRow {
	rows := make([]HourRow, 0, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		rows = append(rows, HourRow{
			Hour:         h,
			Label:        HourLabel(h),
			Appointments: p.AppointmentsStartingAt(h),
			Active:       p.HasActivityAt(h),
		})
	}
	return rows
}

// Slots returns one time slot per hour. A slot is reserved when an
// appointment starts in it; the earliest such appointment is attached.
func (p *Projector) Slots() []calendar.TimeSlot {
	slots := make([]calendar.TimeSlot, 0, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		slot := calendar.TimeSlot{Hour: h}
		if starting := p.AppointmentsStartingAt(h); len(starting) > 0 {
			first := starting[0]
			for _, appt := range starting[1:] {
				if appt.Start.Before(first.Start) {
					first = appt
				}
			}
			slot.Reserved = true
			slot.Appointment = &first
		}
		slots = append(slots, slot)
	}
	return slots
}

// HourLabel renders h on a 12-hour clock, e.g. "12 AM" or "3 PM".
func HourLabel(h int) string {
	if !validHour(h) {
		return ""
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d %s", display, suffix)
}

func validHour(h int) bool {
	return h >= 0 && h < HoursPerDay
}
