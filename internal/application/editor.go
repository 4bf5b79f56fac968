package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
)

// EditorState enumerates the phases of the appointment editing flow.
type EditorState int

const (
	EditorClosed EditorState = iota
	EditorCreating
	EditorEditing
	EditorSaved
	EditorDeleted
)

func (s EditorState) String() string {
	switch s {
	case EditorClosed:
		return "closed"
	case EditorCreating:
		return "creating"
	case EditorEditing:
		return "editing"
	case EditorSaved:
		return "saved"
	case EditorDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("EditorState(%d)", int(s))
	}
}

func (s EditorState) open() bool {
	return s == EditorCreating || s == EditorEditing
}

// EditorStore is the subset of the appointment store used by the editor.
type EditorStore interface {
	Get(id string) (calendar.Appointment, error)
	Add(appt calendar.Appointment) error
	Update(appt calendar.Appointment) error
	Remove(id string)
	HasConflict(start, end time.Time, excludeID string) bool
}

// EditorConfig carries the editor's collaborators. Zero values fall back to defaults.
type EditorConfig struct {
	IDGenerator func() string
	Now         func() time.Time
	Location    *time.Location
	Creator     string
	Logger      *slog.Logger
}

// Editor drives the create/edit/delete flow for a single appointment. It is a
// library component for presentation layers; the HTTP API and CLI write
// through CalendarService instead.
// It is not safe for concurrent use; each presentation session owns one.
type Editor struct {
	store       EditorStore
	idGenerator func() string
	now         func() time.Time
	loc         *time.Location
	creator     string
	logger      *slog.Logger

	state     EditorState
	editingID string
	createdBy string
	form      Form
	result    calendar.Appointment
}

// NewEditor constructs a closed editor bound to store.
func NewEditor(store EditorStore, cfg EditorConfig) *Editor {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Editor{
		store:       store,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		loc:         cfg.Location,
		creator:     cfg.Creator,
		logger:      defaultLogger(cfg.Logger),
	}
}

// State reports the current phase.
func (e *Editor) State() EditorState { return e.state }

// EditingID returns the id of the appointment being edited, if any.
func (e *Editor) EditingID() string { return e.editingID }

// Form returns a copy of the current form.
func (e *Editor) Form() Form { return e.form.clone() }

// Result returns the appointment written by the last successful save.
func (e *Editor) Result() calendar.Appointment { return e.result.Clone() }

// OpenCreate starts a new appointment on date. A zero date means today. The
// start defaults to the next full hour and the end one hour later.
func (e *Editor) OpenCreate(date time.Time) error {
	if e.state.open() {
		return ErrInvalidTransition
	}

	now := e.now().In(e.loc)
	if date.IsZero() {
		date = now
	}
	// Hours past 23 roll over, so the dates come from the instants themselves.
	start := time.Date(date.Year(), date.Month(), date.Day(), now.Hour()+1, 0, 0, 0, e.loc)
	end := start.Add(time.Hour)

	e.reset()
	e.state = EditorCreating
	e.form = Form{
		StartDate: start.Format(DateLayout),
		StartTime: start.Format(ClockLayout),
		EndDate:   end.Format(DateLayout),
		EndTime:   end.Format(ClockLayout),
		Color:     calendar.DefaultColor,
	}
	return nil
}

// OpenEdit loads the appointment with id into the form.
func (e *Editor) OpenEdit(id string) error {
	if e.state.open() {
		return ErrInvalidTransition
	}
	if e.store == nil {
		return fmt.Errorf("appointment store not configured")
	}
	appt, err := e.store.Get(id)
	if err != nil {
		return mapStoreError(err)
	}

	e.reset()
	e.state = EditorEditing
	e.editingID = appt.ID
	e.createdBy = appt.CreatedBy
	e.form = FormFromAppointment(appt)
	return nil
}

// SetForm replaces every form field.
func (e *Editor) SetForm(form Form) error {
	if !e.state.open() {
		return ErrInvalidTransition
	}
	e.form = form.clone()
	return nil
}

// SetAllDay toggles the all-day flag. Enabling it clears the times; disabling
// it restores a 09:00 to 10:00 default.
func (e *Editor) SetAllDay(allDay bool) error {
	if !e.state.open() {
		return ErrInvalidTransition
	}
	e.form.AllDay = allDay
	if allDay {
		e.form.StartTime = ""
		e.form.EndTime = ""
	} else {
		e.form.StartTime = "09:00"
		e.form.EndTime = "10:00"
	}
	return nil
}

// SelectColor sets the appointment colour.
func (e *Editor) SelectColor(color string) error {
	if !e.state.open() {
		return ErrInvalidTransition
	}
	e.form.Color = color
	return nil
}

// AddAttendee appends email to the attendee list. Malformed addresses are
// rejected; duplicates are ignored.
func (e *Editor) AddAttendee(email string) error {
	if !e.state.open() {
		return ErrInvalidTransition
	}
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		vErr := &ValidationError{}
		vErr.add("attendees", "attendee must be a valid email address")
		return vErr
	}
	for _, existing := range e.form.Attendees {
		if existing == email {
			return nil
		}
	}
	e.form.Attendees = append(e.form.Attendees, email)
	return nil
}

// RemoveAttendee drops the attendee at index. Out-of-range indexes are ignored.
func (e *Editor) RemoveAttendee(index int) error {
	if !e.state.open() {
		return ErrInvalidTransition
	}
	if index < 0 || index >= len(e.form.Attendees) {
		return nil
	}
	e.form.Attendees = append(e.form.Attendees[:index], e.form.Attendees[index+1:]...)
	return nil
}

// Validate returns the form's field errors. The result is empty, never nil.
func (e *Editor) Validate() *ValidationError {
	return e.form.Validate(e.loc)
}

// Valid reports whether Save would pass validation.
func (e *Editor) Valid() bool {
	return !e.Validate().HasErrors()
}

// Conflict reports whether the form's range overlaps another stored,
// timed appointment. Forms without both dates never conflict.
func (e *Editor) Conflict() bool {
	if !e.state.open() || e.store == nil {
		return false
	}
	start, end, ok := e.form.Range(e.loc, true)
	if !ok {
		return false
	}
	return e.store.HasConflict(start, end, e.editingID)
}

// Save validates the form and writes it to the store.
func (e *Editor) Save(ctx context.Context) (err error) {
	if !e.state.open() {
		return ErrInvalidTransition
	}
	if e.store == nil {
		return fmt.Errorf("appointment store not configured")
	}

	operation := "create"
	if e.state == EditorEditing {
		operation = "update"
	}
	logger := serviceLogger(ctx, e.logger, "Editor", "Save", "mode", operation)
	var appt calendar.Appointment
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("appointment_id", appt.ID).InfoContext(ctx, "appointment saved")
	}()

	if vErr := e.Validate(); vErr.HasErrors() {
		return vErr
	}

	start, end, _ := e.form.Range(e.loc, false)
	appt = calendar.Appointment{
		Title:       strings.TrimSpace(e.form.Title),
		Description: e.form.Description,
		Start:       start,
		End:         end,
		Location:    strings.TrimSpace(e.form.Location),
		Color:       e.form.Color,
		AllDay:      e.form.AllDay,
		Attendees:   normalizeAttendees(e.form.Attendees),
	}
	if appt.Color == "" {
		appt.Color = calendar.DefaultColor
	}

	if e.state == EditorEditing {
		appt.ID = e.editingID
		appt.CreatedBy = e.createdBy
		if err = e.store.Update(appt); err != nil {
			return err
		}
	} else {
		appt.ID = e.idGenerator()
		appt.CreatedBy = e.creator
		if err = e.store.Add(appt); err != nil {
			return err
		}
	}

	e.result = appt.Clone()
	e.state = EditorSaved
	return nil
}

// Delete removes the appointment being edited.
func (e *Editor) Delete(ctx context.Context) error {
	if e.state != EditorEditing {
		return ErrInvalidTransition
	}
	if e.store == nil {
		return fmt.Errorf("appointment store not configured")
	}
	e.store.Remove(e.editingID)
	serviceLogger(ctx, e.logger, "Editor", "Delete", "appointment_id", e.editingID).
		InfoContext(ctx, "appointment deleted")
	e.state = EditorDeleted
	return nil
}

// Close abandons the flow from any state.
func (e *Editor) Close() {
	e.reset()
	e.state = EditorClosed
}

func (e *Editor) reset() {
	e.editingID = ""
	e.createdBy = ""
	e.form = Form{}
	e.result = calendar.Appointment{}
}
