package http

import (
	"strings"
	"time"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/dayview"
	"github.com/example/appointment-calendar/internal/grid"
)

const dateLayout = "2006-01-02"

type appointmentDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Location    string   `json:"location,omitempty"`
	Color       string   `json:"color"`
	AllDay      bool     `json:"all_day"`
	Attendees   []string `json:"attendees"`
	CreatedBy   string   `json:"created_by"`
}

func toAppointmentDTO(appt calendar.Appointment) appointmentDTO {
	attendees := appt.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return appointmentDTO{
		ID:          appt.ID,
		Title:       appt.Title,
		Description: appt.Description,
		Start:       formatWallClock(appt.Start),
		End:         formatWallClock(appt.End),
		Location:    appt.Location,
		Color:       appt.Color,
		AllDay:      appt.AllDay,
		Attendees:   attendees,
		CreatedBy:   appt.CreatedBy,
	}
}

func toAppointmentDTOs(appointments []calendar.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(appointments))
	for _, appt := range appointments {
		out = append(out, toAppointmentDTO(appt))
	}
	return out
}

type appointmentRequest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Location    string   `json:"location"`
	Color       string   `json:"color"`
	AllDay      bool     `json:"all_day"`
	Attendees   []string `json:"attendees"`
	CreatedBy   string   `json:"created_by"`
}

// toInput parses the wall-clock fields in loc. Unparseable values are
// reported as field errors; empty values are left zero for the service to
// reject.
func (r appointmentRequest) toInput(loc *time.Location) (application.AppointmentInput, *application.ValidationError) {
	vErr := &application.ValidationError{}
	start := parseTimestampField(vErr, "start", r.Start, loc)
	end := parseTimestampField(vErr, "end", r.End, loc)
	if vErr.HasErrors() {
		return application.AppointmentInput{}, vErr
	}
	return application.AppointmentInput{
		ID:          strings.TrimSpace(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Start:       start,
		End:         end,
		Location:    r.Location,
		Color:       r.Color,
		AllDay:      r.AllDay,
		Attendees:   r.Attendees,
		CreatedBy:   r.CreatedBy,
	}, nil
}

type appointmentResponse struct {
	Appointment appointmentDTO       `json:"appointment"`
	Warnings    []conflictWarningDTO `json:"warnings,omitempty"`
}

type appointmentListResponse struct {
	Appointments []appointmentDTO `json:"appointments"`
}

type conflictWarningDTO struct {
	AppointmentID string `json:"appointment_id"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func toConflictWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, conflictWarningDTO{
			AppointmentID: w.AppointmentID,
			Title:         w.Title,
			Start:         formatWallClock(w.Start),
			End:           formatWallClock(w.End),
		})
	}
	return out
}

type conflictRequest struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	ExcludeID string `json:"exclude_id"`
}

type conflictResponse struct {
	Conflict  bool                 `json:"conflict"`
	IDs       []string             `json:"ids"`
	Conflicts []conflictWarningDTO `json:"conflicts,omitempty"`
}

type calendarDayDTO struct {
	Date           string           `json:"date"`
	IsCurrentMonth bool             `json:"is_current_month"`
	IsToday        bool             `json:"is_today"`
	IsSelected     bool             `json:"is_selected"`
	Appointments   []appointmentDTO `json:"appointments"`
}

type monthViewResponse struct {
	Month    string           `json:"month"`
	Title    string           `json:"title"`
	Previous string           `json:"previous"`
	Next     string           `json:"next"`
	Weekdays []string         `json:"weekdays"`
	Days     []calendarDayDTO `json:"days"`
}

func toMonthViewResponse(view application.MonthView) monthViewResponse {
	days := make([]calendarDayDTO, 0, len(view.Days))
	for _, day := range view.Days {
		days = append(days, calendarDayDTO{
			Date:           day.Date.Format(dateLayout),
			IsCurrentMonth: day.IsCurrentMonth,
			IsToday:        day.IsToday,
			IsSelected:     day.IsSelected,
			Appointments:   toAppointmentDTOs(day.Appointments),
		})
	}
	return monthViewResponse{
		Month:    view.Month.String(),
		Title:    view.Title,
		Previous: view.Month.Previous().String(),
		Next:     view.Month.Next().String(),
		Weekdays: view.Weekdays,
		Days:     days,
	}
}

type hourRowDTO struct {
	Hour           int      `json:"hour"`
	Label          string   `json:"label"`
	Active         bool     `json:"active"`
	AppointmentIDs []string `json:"appointment_ids"`
}

type dayViewResponse struct {
	Date         string                    `json:"date"`
	Appointments []appointmentDTO          `json:"appointments"`
	Rows         []hourRowDTO              `json:"rows"`
	Offsets      map[string]dayview.Offset `json:"offsets"`
}

func toDayViewResponse(view application.DayView) dayViewResponse {
	rows := make([]hourRowDTO, 0, len(view.Rows))
	for _, row := range view.Rows {
		ids := make([]string, 0, len(row.Appointments))
		for _, appt := range row.Appointments {
			ids = append(ids, appt.ID)
		}
		rows = append(rows, hourRowDTO{
			Hour:           row.Hour,
			Label:          row.Label,
			Active:         row.Active,
			AppointmentIDs: ids,
		})
	}
	offsets := view.Offsets
	if offsets == nil {
		offsets = map[string]dayview.Offset{}
	}
	return dayViewResponse{
		Date:         view.Date.Format(dateLayout),
		Appointments: toAppointmentDTOs(view.Appointments),
		Rows:         rows,
		Offsets:      offsets,
	}
}

type importResponse struct {
	Created []string     `json:"created"`
	Updated []string     `json:"updated"`
	Skipped []skippedDTO `json:"skipped"`
}

type skippedDTO struct {
	UID    string `json:"uid,omitempty"`
	Reason string `json:"reason"`
}

func toImportResponse(result application.ImportResult) importResponse {
	resp := importResponse{
		Created: result.Created,
		Updated: result.Updated,
		Skipped: make([]skippedDTO, 0, len(result.Skipped)),
	}
	if resp.Created == nil {
		resp.Created = []string{}
	}
	if resp.Updated == nil {
		resp.Updated = []string{}
	}
	for _, skipped := range result.Skipped {
		resp.Skipped = append(resp.Skipped, skippedDTO{UID: skipped.UID, Reason: skipped.Reason})
	}
	return resp
}

func formatWallClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(calendar.WallClockLayout)
}

func parseTimestampField(vErr *application.ValidationError, field, value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := calendar.ParseWallClock(value, loc)
	if err != nil {
		setFieldError(vErr, field, field+" must be a local timestamp such as 2025-01-15T10:00")
		return time.Time{}
	}
	return t
}

func parseDateField(vErr *application.ValidationError, field, value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		setFieldError(vErr, field, field+" must be a date such as 2025-01-15")
		return time.Time{}
	}
	return t
}

func parseMonthField(vErr *application.ValidationError, field, value string) (grid.Month, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return grid.Month{}, false
	}
	m, err := grid.ParseMonth(value)
	if err != nil {
		setFieldError(vErr, field, field+" must look like 2025-01")
		return grid.Month{}, false
	}
	return m, true
}

func setFieldError(vErr *application.ValidationError, field, message string) {
	if vErr.FieldErrors == nil {
		vErr.FieldErrors = make(map[string]string)
	}
	vErr.FieldErrors[field] = message
}
