package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/calendar"
)

var appointmentCounter uint64

// referenceTime is Wednesday 2025-01-15 09:30 UTC, inside the seeded week.
var referenceTime = time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns hh:mm on the given January 2025 day in UTC.
func At(day, hour, minute int) time.Time {
	return time.Date(2025, time.January, day, hour, minute, 0, 0, time.UTC)
}

// AppointmentFixture is a deterministic appointment with optional overrides.
type AppointmentFixture struct {
	calendar.Appointment
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a one-hour appointment starting an hour after
// ReferenceTime. Each call yields a fresh id.
func NewAppointmentFixture(opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	start := referenceTime.Truncate(time.Hour).Add(time.Hour)
	fixture := AppointmentFixture{Appointment: calendar.Appointment{
		ID:        fmt.Sprintf("fixture-%03d", idx),
		Title:     fmt.Sprintf("Appointment %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Color:     calendar.DefaultColor,
		CreatedBy: "user@example.com",
	}}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentID overrides the generated id.
func WithAppointmentID(id string) AppointmentOption {
	return func(f *AppointmentFixture) { f.ID = id }
}

// WithTitle overrides the generated title.
func WithTitle(title string) AppointmentOption {
	return func(f *AppointmentFixture) { f.Title = title }
}

// WithRange sets start and end.
func WithRange(start, end time.Time) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Start = start
		f.End = end
	}
}

// WithAllDay marks the fixture as spanning the whole day of its start.
func WithAllDay() AppointmentOption {
	return func(f *AppointmentFixture) {
		f.AllDay = true
		f.Start = calendar.StartOfDay(f.Start)
		f.End = calendar.EndOfDay(f.Start)
	}
}

// WithAttendees sets the attendee list.
func WithAttendees(attendees ...string) AppointmentOption {
	return func(f *AppointmentFixture) { f.Attendees = append([]string(nil), attendees...) }
}

// WithLocation sets the location.
func WithLocation(location string) AppointmentOption {
	return func(f *AppointmentFixture) { f.Location = location }
}

// WithColor sets the colour.
func WithColor(color string) AppointmentOption {
	return func(f *AppointmentFixture) { f.Color = color }
}

// WithCreator sets the creator.
func WithCreator(email string) AppointmentOption {
	return func(f *AppointmentFixture) { f.CreatedBy = email }
}

// Model returns a deep copy of the fixture as a domain appointment.
func (f AppointmentFixture) Model() calendar.Appointment {
	return f.Appointment.Clone()
}

// Input converts the fixture into service input.
func (f AppointmentFixture) Input() application.AppointmentInput {
	return application.AppointmentInput{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Start:       f.Start,
		End:         f.End,
		Location:    f.Location,
		Color:       f.Color,
		AllDay:      f.AllDay,
		Attendees:   append([]string(nil), f.Attendees...),
		CreatedBy:   f.CreatedBy,
	}
}

// SampleAppointments mirrors the demonstration data: a team meeting and a
// project review on consecutive days plus an all-day conference.
func SampleAppointments() []calendar.Appointment {
	return []calendar.Appointment{
		NewAppointmentFixture(
			WithAppointmentID("1"),
			WithTitle("Team Meeting"),
			WithRange(At(15, 10, 0), At(15, 11, 0)),
			WithLocation("Conference Room A"),
			WithAttendees("john@example.com", "jane@example.com"),
		).Model(),
		NewAppointmentFixture(
			WithAppointmentID("2"),
			WithTitle("Project Review"),
			WithRange(At(16, 14, 0), At(16, 15, 30)),
			WithColor("#10b981"),
			WithAttendees("manager@example.com"),
		).Model(),
		NewAppointmentFixture(
			WithAppointmentID("3"),
			WithTitle("Conference"),
			WithRange(At(20, 0, 0), At(20, 23, 59)),
			WithColor("#f59e0b"),
			WithAllDay(),
		).Model(),
	}
}
