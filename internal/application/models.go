package application

import (
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/dayview"
	"github.com/example/appointment-calendar/internal/grid"
	"github.com/example/appointment-calendar/internal/ics"
)

// AppointmentInput captures the fields accepted when creating or replacing an appointment.
type AppointmentInput struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Location    string
	Color       string
	AllDay      bool
	Attendees   []string
	CreatedBy   string
}

// ListAppointmentsParams narrows ListAppointments to appointments starting within [From, To].
type ListAppointmentsParams struct {
	From *time.Time
	To   *time.Time
}

// ConflictWarning surfaces an overlapping appointment without blocking the write.
type ConflictWarning struct {
	AppointmentID string
	Title         string
	Start         time.Time
	End           time.Time
}

// MonthView is the six-week grid for a month.
type MonthView struct {
	Month    grid.Month
	Title    string
	Weekdays []string
	Days     []calendar.CalendarDay
}

// DayView is the hourly schedule of a single day.
type DayView struct {
	Date         time.Time
	Appointments []calendar.Appointment
	Rows         []dayview.HourRow
	Offsets      map[string]dayview.Offset
}

// ImportResult summarises an iCalendar import.
type ImportResult struct {
	Created []string
	Updated []string
	Skipped []ics.EventError
}
