package calendar

import (
	"strings"
	"time"
)

// Appointment represents a scheduled entry on the calendar.
//
// Start and End are wall-clock timestamps: only their date and clock
// components are interpreted, and they are never converted between zones.
type Appointment struct {
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

// Clone returns a deep copy of the appointment.
func (a Appointment) Clone() Appointment {
	out := a
	if a.Attendees != nil {
		out.Attendees = append([]string(nil), a.Attendees...)
	}
	return out
}

// reservedIDs name fixed resources that share the appointment path namespace.
var reservedIDs = map[string]struct{}{
	"conflicts": {},
	"stream":    {},
}

// ValidID reports whether id can address an appointment as a single,
// non-reserved path segment.
func ValidID(id string) bool {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return false
	}
	_, reserved := reservedIDs[id]
	return !reserved
}

// Duration reports the time between Start and End.
func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// CalendarDay is a single cell of the month grid.
type CalendarDay struct {
	Date           time.Time
	Appointments   []Appointment
	IsCurrentMonth bool
	IsToday        bool
	IsSelected     bool
}

// TimeSlot describes one unit of a day schedule and whether it is taken.
type TimeSlot struct {
	Hour        int
	Minute      int
	Reserved    bool
	Appointment *Appointment
}

// CloneAll deep-copies a slice of appointments. A nil input yields an empty,
// non-nil slice so callers can always range and encode the result.
func CloneAll(appointments []Appointment) []Appointment {
	out := make([]Appointment, len(appointments))
	for i, appt := range appointments {
		out[i] = appt.Clone()
	}
	return out
}
