package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/appointment-calendar/internal/calendar"
)

// ErrEmpty is returned when the payload holds no calendar data.
var ErrEmpty = errors.New("ics: empty calendar payload")

// EventError describes a VEVENT that could not be converted.
type EventError struct {
	UID    string
	Reason string
}

func (e EventError) Error() string {
	if e.UID == "" {
		return "ics: event skipped: " + e.Reason
	}
	return fmt.Sprintf("ics: event %q skipped: %s", e.UID, e.Reason)
}

// Import parses an iCalendar payload into appointments expressed as wall
// clock times in loc. Events that cannot be converted are reported in skipped
// and do not abort the import. Recurrence rules are ignored; only the first
// occurrence of a recurring event is kept.
func Import(r io.Reader, loc *time.Location) (appointments []calendar.Appointment, skipped []EventError, err error) {
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, nil, fmt.Errorf("ics: parse calendar: %w", err)
	}
	if cal == nil {
		return nil, nil, ErrEmpty
	}

	for _, ve := range cal.Events() {
		appt, perr := convertEvent(ve, loc)
		if perr != nil {
			skipped = append(skipped, *perr)
			continue
		}
		appointments = append(appointments, appt)
	}
	return appointments, skipped, nil
}

func convertEvent(ve *ical.VEvent, loc *time.Location) (calendar.Appointment, *EventError) {
	var appt calendar.Appointment

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || strings.TrimSpace(uidProp.Value) == "" {
		return appt, &EventError{Reason: "missing UID"}
	}
	appt.ID = strings.TrimSpace(uidProp.Value)

	appt.Title = propertyValue(ve, ical.ComponentPropertySummary)
	appt.Description = propertyValue(ve, ical.ComponentPropertyDescription)
	appt.Location = propertyValue(ve, ical.ComponentPropertyLocation)
	appt.Color = propertyValue(ve, propertyColor)
	if appt.Color == "" {
		appt.Color = calendar.DefaultColor
	}
	appt.CreatedBy = stripMailto(propertyValue(ve, ical.ComponentPropertyOrganizer))

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return appt, &EventError{UID: appt.ID, Reason: "missing DTSTART"}
	}
	start, allDay, err := parseDateValue(startProp, loc)
	if err != nil {
		return appt, &EventError{UID: appt.ID, Reason: "invalid DTSTART: " + err.Error()}
	}
	appt.Start = start
	appt.AllDay = allDay

	end := start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, _, err = parseDateValue(endProp, loc)
		if err != nil {
			return appt, &EventError{UID: appt.ID, Reason: "invalid DTEND: " + err.Error()}
		}
	} else if allDay {
		end = start.AddDate(0, 0, 1)
	}

	if allDay {
		appt.Start = calendar.StartOfDay(start)
		// DATE DTEND is exclusive; the last covered day ends at 23:59:59.
		last := end.AddDate(0, 0, -1)
		if last.Before(appt.Start) {
			last = appt.Start
		}
		appt.End = calendar.EndOfDay(last)
	} else {
		appt.End = end
	}

	seen := make(map[string]struct{})
	for _, prop := range ve.Properties {
		if !strings.EqualFold(prop.IANAToken, string(ical.ComponentPropertyAttendee)) {
			continue
		}
		email := stripMailto(prop.Value)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		appt.Attendees = append(appt.Attendees, email)
	}

	return appt, nil
}

func propertyValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if prop := ve.GetProperty(name); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func stripMailto(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= len("mailto:") && strings.EqualFold(value[:len("mailto:")], "mailto:") {
		value = value[len("mailto:"):]
	}
	return strings.TrimSpace(value)
}

// parseDateValue interprets DATE and DATE-TIME values. UTC and TZID values
// are converted into loc; floating values are read as wall clock in loc.
func parseDateValue(prop *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	value := strings.TrimSpace(prop.Value)
	if value == "" {
		return time.Time{}, false, errors.New("empty value")
	}

	isDate := !strings.Contains(value, "T")
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		if len(value) > len(dateLayout) {
			value = value[:len(dateLayout)]
		}
		t, err := time.ParseInLocation(dateLayout, value, loc)
		return t, true, err
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(floatingLayout+"Z", value)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(loc), false, nil
	}

	if tzs, ok := prop.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if zone, err := time.LoadLocation(tzs[0]); err == nil {
			t, err := time.ParseInLocation(floatingLayout, value, zone)
			if err != nil {
				return time.Time{}, false, err
			}
			return t.In(loc), false, nil
		}
	}

	t, err := time.ParseInLocation(floatingLayout, value, loc)
	return t, false, err
}
