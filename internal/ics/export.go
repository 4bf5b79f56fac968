// Package ics converts appointments to and from iCalendar (RFC 5545) data.
package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/appointment-calendar/internal/calendar"
)

const (
	// DefaultProductID identifies calendars produced by this package.
	DefaultProductID = "-//appointment-calendar//EN"

	// propertyColor carries the appointment colour (RFC 7986).
	propertyColor = ical.ComponentProperty("COLOR")

	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

type exportOptions struct {
	productID string
	now       func() time.Time
}

// ExportOption customises Export.
type ExportOption func(*exportOptions)

// WithProductID overrides the PRODID of the generated calendar.
func WithProductID(id string) ExportOption {
	return func(o *exportOptions) {
		if id != "" {
			o.productID = id
		}
	}
}

// WithNow sets the clock used for DTSTAMP.
func WithNow(now func() time.Time) ExportOption {
	return func(o *exportOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Export writes appointments as a single VCALENDAR. Timed appointments use
// floating local times so that wall-clock values survive the round trip.
// All-day appointments use DATE values with an exclusive DTEND.
func Export(w io.Writer, appointments []calendar.Appointment, opts ...ExportOption) error {
	cfg := exportOptions{productID: DefaultProductID, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(cfg.productID)

	stamp := cfg.now().UTC()
	for _, appt := range appointments {
		event := cal.AddEvent(appt.ID)
		event.SetDtStampTime(stamp)
		event.SetSummary(appt.Title)
		if appt.Description != "" {
			event.SetDescription(appt.Description)
		}
		if appt.Location != "" {
			event.SetLocation(appt.Location)
		}
		if appt.Color != "" {
			event.SetProperty(propertyColor, appt.Color)
		}
		if appt.CreatedBy != "" {
			event.SetProperty(ical.ComponentPropertyOrganizer, "mailto:"+appt.CreatedBy)
		}

		if appt.AllDay {
			event.SetAllDayStartAt(appt.Start)
			// DTEND is exclusive for DATE values.
			event.SetAllDayEndAt(calendar.StartOfDay(appt.End).AddDate(0, 0, 1))
		} else {
			event.SetProperty(ical.ComponentPropertyDtStart, appt.Start.Format(floatingLayout))
			event.SetProperty(ical.ComponentPropertyDtEnd, appt.End.Format(floatingLayout))
		}

		for _, attendee := range appt.Attendees {
			event.AddAttendee(attendee)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
