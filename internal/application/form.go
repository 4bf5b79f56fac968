package application

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
)

const (
	// DateLayout is the wire and form layout for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the form layout for times of day.
	ClockLayout = "15:04"
)

// Form mirrors the editable fields of an appointment as entered by a user.
// Dates and times are kept as text so that partially filled forms can be
// represented and validated.
type Form struct {
	Title       string
	Description string
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	Location    string
	Color       string
	AllDay      bool
	Attendees   []string
}

func (f Form) clone() Form {
	out := f
	if f.Attendees != nil {
		out.Attendees = append([]string(nil), f.Attendees...)
	}
	return out
}

// FormFromAppointment renders appt into form fields.
func FormFromAppointment(appt calendar.Appointment) Form {
	form := Form{
		Title:       appt.Title,
		Description: appt.Description,
		StartDate:   appt.Start.Format(DateLayout),
		EndDate:     appt.End.Format(DateLayout),
		Location:    appt.Location,
		Color:       appt.Color,
		AllDay:      appt.AllDay,
		Attendees:   append([]string(nil), appt.Attendees...),
	}
	if !appt.AllDay {
		form.StartTime = appt.Start.Format(ClockLayout)
		form.EndTime = appt.End.Format(ClockLayout)
	}
	return form
}

// Validate checks that the form can be turned into an appointment.
func (f Form) Validate(loc *time.Location) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(f.Title) == "" {
		vErr.add("title", "title is required")
	}
	for _, attendee := range f.Attendees {
		if !ValidEmail(attendee) {
			vErr.add("attendees", "attendees must be valid email addresses")
			break
		}
	}

	startDate, startOK := parseFormDate(f.StartDate, "start_date", loc, vErr)
	endDate, endOK := parseFormDate(f.EndDate, "end_date", loc, vErr)

	if f.AllDay {
		if startOK && endOK && endDate.Before(startDate) {
			vErr.add("time", "end date must not be before start date")
		}
		return vErr
	}

	startClock, startClockOK := parseFormClock(f.StartTime, "start_time", vErr)
	endClock, endClockOK := parseFormClock(f.EndTime, "end_time", vErr)

	if startOK && endOK && startClockOK && endClockOK {
		start := combine(startDate, startClock)
		end := combine(endDate, endClock)
		if end.Before(start) {
			vErr.add("time", "end time must not be before start time")
		}
	}
	return vErr
}

// Range resolves the form into concrete start and end instants. All-day
// forms span 00:00:00 to 23:59:59. When lenient is set, missing times fall
// back to 00:00 and 23:59, matching the live conflict indicator. ok is false
// when either date is missing or malformed.
func (f Form) Range(loc *time.Location, lenient bool) (start, end time.Time, ok bool) {
	startDate, err := parseDate(f.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endDate, err := parseDate(f.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	if f.AllDay {
		return startDate, calendar.EndOfDay(endDate), true
	}

	startText, endText := f.StartTime, f.EndTime
	if lenient {
		if strings.TrimSpace(startText) == "" {
			startText = "00:00"
		}
		if strings.TrimSpace(endText) == "" {
			endText = "23:59"
		}
	}
	startClock, err := parseClock(startText)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endClock, err := parseClock(endText)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return combine(startDate, startClock), combine(endDate, endClock), true
}

func parseFormDate(value, field string, loc *time.Location, vErr *ValidationError) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		vErr.add(field, "date is required")
		return time.Time{}, false
	}
	parsed, err := parseDate(value, loc)
	if err != nil {
		vErr.add(field, "date must use YYYY-MM-DD")
		return time.Time{}, false
	}
	return parsed, true
}

func parseFormClock(value, field string, vErr *ValidationError) (time.Duration, bool) {
	if strings.TrimSpace(value) == "" {
		vErr.add(field, "time is required unless the appointment is all day")
		return 0, false
	}
	parsed, err := parseClock(value)
	if err != nil {
		vErr.add(field, "time must use HH:MM")
		return 0, false
	}
	return parsed, true
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
}

// parseClock returns the offset from midnight for an HH:MM value.
func parseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse(ClockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

func combine(date time.Time, clock time.Duration) time.Time {
	hours := int(clock / time.Hour)
	minutes := int((clock % time.Hour) / time.Minute)
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, date.Location())
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether value is a bare email address with a dotted domain.
func ValidEmail(value string) bool {
	if !emailPattern.MatchString(value) {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

// normalizeAttendees trims entries and drops duplicates, keeping first occurrence order.
func normalizeAttendees(attendees []string) []string {
	if len(attendees) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(attendees))
	out := make([]string, 0, len(attendees))
	for _, attendee := range attendees {
		attendee = strings.TrimSpace(attendee)
		if attendee == "" {
			continue
		}
		if _, ok := seen[attendee]; ok {
			continue
		}
		seen[attendee] = struct{}{}
		out = append(out, attendee)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
