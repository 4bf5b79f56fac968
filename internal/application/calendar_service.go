package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/dayview"
	"github.com/example/appointment-calendar/internal/grid"
	"github.com/example/appointment-calendar/internal/ics"
	"github.com/example/appointment-calendar/internal/store"
)

// AppointmentStore captures the store operations needed by the calendar service.
type AppointmentStore interface {
	EditorStore
	List() []calendar.Appointment
	ForDate(date time.Time) []calendar.Appointment
	ForRange(start, end time.Time) []calendar.Appointment
	Conflicts(start, end time.Time, excludeID string) []string
	Subscribe(fn store.Observer) *store.Subscription
}

// ServiceConfig carries presentation and defaulting settings.
type ServiceConfig struct {
	Location        *time.Location
	WeekStart       time.Weekday
	Creator         string
	UnitSize        float64
	MinimumUnitSize float64
}

// CalendarService exposes appointment and calendar view operations.
type CalendarService struct {
	store       AppointmentStore
	idGenerator func() string
	now         func() time.Time
	cfg         ServiceConfig
	logger      *slog.Logger
	warnings    *warningCache
}

const (
	warningCacheTTL     = 30 * time.Second
	warningCacheEntries = 256
)

// NewCalendarService wires dependencies for calendar operations.
func NewCalendarService(appointments AppointmentStore, idGenerator func() string, now func() time.Time, cfg ServiceConfig) *CalendarService {
	return NewCalendarServiceWithLogger(appointments, idGenerator, now, cfg, nil)
}

// NewCalendarServiceWithLogger wires dependencies with a specified logger.
func NewCalendarServiceWithLogger(appointments AppointmentStore, idGenerator func() string, now func() time.Time, cfg ServiceConfig, logger *slog.Logger) *CalendarService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cache := newWarningCache(warningCacheTTL, warningCacheEntries, now)
	if appointments != nil {
		appointments.Subscribe(func([]calendar.Appointment) { cache.Invalidate() })
	}
	return &CalendarService{
		store:       appointments,
		idGenerator: idGenerator,
		now:         now,
		cfg:         cfg,
		logger:      defaultLogger(logger),
		warnings:    cache,
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// Location returns the zone wall-clock values are interpreted in.
func (s *CalendarService) Location() *time.Location {
	return s.cfg.Location
}

// Today returns the current time in the configured location.
func (s *CalendarService) Today() time.Time {
	return s.now().In(s.cfg.Location)
}

// NewEditor returns an editor bound to the service's store and defaults.
func (s *CalendarService) NewEditor() *Editor {
	return NewEditor(s.store, EditorConfig{
		IDGenerator: s.idGenerator,
		Now:         s.now,
		Location:    s.cfg.Location,
		Creator:     s.cfg.Creator,
		Logger:      s.logger,
	})
}

// ListAppointments returns appointments in insertion order, optionally
// restricted to those starting within the requested bounds.
func (s *CalendarService) ListAppointments(ctx context.Context, params ListAppointmentsParams) ([]calendar.Appointment, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("CalendarService is not configured")
	}

	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		vErr := &ValidationError{}
		vErr.add("to", "to must not be before from")
		return nil, vErr
	}

	var out []calendar.Appointment
	switch {
	case params.From != nil && params.To != nil:
		out = s.store.ForRange(*params.From, *params.To)
	case params.From != nil || params.To != nil:
		for _, appt := range s.store.List() {
			if params.From != nil && appt.Start.Before(*params.From) {
				continue
			}
			if params.To != nil && appt.Start.After(*params.To) {
				continue
			}
			out = append(out, appt)
		}
	default:
		out = s.store.List()
	}

	s.loggerWith(ctx, "ListAppointments").DebugContext(ctx, "appointments listed", "count", len(out))
	if out == nil {
		out = []calendar.Appointment{}
	}
	return out, nil
}

// GetAppointment returns a single appointment.
func (s *CalendarService) GetAppointment(ctx context.Context, id string) (calendar.Appointment, error) {
	if s == nil || s.store == nil {
		return calendar.Appointment{}, fmt.Errorf("CalendarService is not configured")
	}
	appt, err := s.store.Get(id)
	if err != nil {
		return calendar.Appointment{}, mapStoreError(err)
	}
	return appt, nil
}

// CreateAppointment validates input and adds a new appointment. Overlaps are
// reported as warnings and do not block the write.
func (s *CalendarService) CreateAppointment(ctx context.Context, input AppointmentInput) (appt calendar.Appointment, warnings []ConflictWarning, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("CalendarService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateAppointment")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("appointment_id", appt.ID).InfoContext(ctx, "appointment created", "conflicts", len(warnings))
	}()

	if vErr := validateAppointmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	appt = s.buildAppointment(input)
	if appt.ID == "" {
		appt.ID = s.idGenerator()
	}
	if appt.CreatedBy == "" {
		appt.CreatedBy = s.cfg.Creator
	}

	warnings = s.conflictWarnings(appt.Start, appt.End, appt.ID)

	if err = s.store.Add(appt); err != nil {
		err = mapStoreError(err)
		appt = calendar.Appointment{}
		warnings = nil
		return
	}
	s.warnings.Invalidate()
	return
}

// UpdateAppointment replaces the appointment identified by id. The creator is
// preserved when the input leaves it empty.
func (s *CalendarService) UpdateAppointment(ctx context.Context, id string, input AppointmentInput) (appt calendar.Appointment, warnings []ConflictWarning, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("CalendarService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateAppointment", "appointment_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment updated", "conflicts", len(warnings))
	}()

	var existing calendar.Appointment
	existing, err = s.store.Get(id)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	vErr := validateAppointmentInput(input)
	if input.ID != "" && input.ID != id {
		vErr.add("id", "id cannot be changed")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	appt = s.buildAppointment(input)
	appt.ID = existing.ID
	if appt.CreatedBy == "" {
		appt.CreatedBy = existing.CreatedBy
	}

	warnings = s.conflictWarnings(appt.Start, appt.End, appt.ID)

	if err = s.store.Update(appt); err != nil {
		err = mapStoreError(err)
		appt = calendar.Appointment{}
		warnings = nil
		return
	}
	s.warnings.Invalidate()
	return
}

// DeleteAppointment removes the appointment identified by id.
func (s *CalendarService) DeleteAppointment(ctx context.Context, id string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("CalendarService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteAppointment", "appointment_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment deleted")
	}()

	if _, err = s.store.Get(id); err != nil {
		err = mapStoreError(err)
		return
	}
	s.store.Remove(id)
	s.warnings.Invalidate()
	return nil
}

// CheckConflict reports the timed appointments overlapping [start, end),
// ignoring excludeID.
func (s *CalendarService) CheckConflict(ctx context.Context, start, end time.Time, excludeID string) ([]ConflictWarning, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("CalendarService is not configured")
	}
	vErr := &ValidationError{}
	validateRange(start, end, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}
	warnings := s.conflictWarnings(start, end, excludeID)
	s.loggerWith(ctx, "CheckConflict").DebugContext(ctx, "conflicts checked", "conflicts", len(warnings))
	return warnings, nil
}

// MonthView builds the grid for month. A zero selected date selects nothing.
func (s *CalendarService) MonthView(ctx context.Context, month grid.Month, selected time.Time) (MonthView, error) {
	if s == nil || s.store == nil {
		return MonthView{}, fmt.Errorf("CalendarService is not configured")
	}
	days := grid.Build(month.First(s.cfg.Location), selected, s.store,
		grid.WithWeekStart(s.cfg.WeekStart),
		grid.WithNow(func() time.Time { return s.now().In(s.cfg.Location) }),
	)
	return MonthView{
		Month:    month,
		Title:    month.Title(),
		Weekdays: grid.Weekdays(s.cfg.WeekStart),
		Days:     days,
	}, nil
}

// DayView projects the appointments of date onto the hourly schedule.
func (s *CalendarService) DayView(ctx context.Context, date time.Time) (DayView, error) {
	if s == nil || s.store == nil {
		return DayView{}, fmt.Errorf("CalendarService is not configured")
	}
	var opts []dayview.Option
	if s.cfg.UnitSize > 0 {
		opts = append(opts, dayview.WithUnitSize(s.cfg.UnitSize))
	}
	if s.cfg.MinimumUnitSize > 0 {
		opts = append(opts, dayview.WithMinimumUnitSize(s.cfg.MinimumUnitSize))
	}

	projector := dayview.New(date, s.store, opts...)
	appointments := projector.Appointments()
	offsets := make(map[string]dayview.Offset, len(appointments))
	for _, appt := range appointments {
		offsets[appt.ID] = projector.LayoutOffset(appt)
	}
	return DayView{
		Date:         projector.Date(),
		Appointments: appointments,
		Rows:         projector.Rows(),
		Offsets:      offsets,
	}, nil
}

// Subscribe forwards to the store's change notifications.
func (s *CalendarService) Subscribe(fn store.Observer) *store.Subscription {
	if s == nil || s.store == nil {
		return &store.Subscription{}
	}
	return s.store.Subscribe(fn)
}

// ExportICS writes every appointment as an iCalendar document.
func (s *CalendarService) ExportICS(ctx context.Context, w io.Writer) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("CalendarService is not configured")
	}
	appointments := s.store.List()

	logger := s.loggerWith(ctx, "ExportICS")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export calendar", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calendar exported", "count", len(appointments))
	}()

	return ics.Export(w, appointments, ics.WithNow(s.now))
}

// ImportICS reads an iCalendar document. Known ids are replaced, new ids
// are added, and invalid events are skipped.
func (s *CalendarService) ImportICS(ctx context.Context, r io.Reader) (result ImportResult, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("CalendarService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ImportICS")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import calendar", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calendar imported",
			"created", len(result.Created),
			"updated", len(result.Updated),
			"skipped", len(result.Skipped),
		)
	}()

	var appointments []calendar.Appointment
	appointments, result.Skipped, err = ics.Import(r, s.cfg.Location)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("calendar", err.Error())
		err = vErr
		return
	}

	for _, appt := range appointments {
		if err = ctx.Err(); err != nil {
			return
		}
		input := inputFromAppointment(appt)
		if vErr := validateAppointmentInput(input); vErr.HasErrors() {
			result.Skipped = append(result.Skipped, ics.EventError{UID: appt.ID, Reason: vErr.Error()})
			continue
		}
		normalized := s.buildAppointment(input)
		if normalized.CreatedBy == "" {
			normalized.CreatedBy = s.cfg.Creator
		}

		updateErr := s.store.Update(normalized)
		switch {
		case updateErr == nil:
			result.Updated = append(result.Updated, normalized.ID)
		case errors.Is(updateErr, store.ErrNotFound):
			if addErr := s.store.Add(normalized); addErr != nil {
				err = mapStoreError(addErr)
				return
			}
			result.Created = append(result.Created, normalized.ID)
		default:
			err = mapStoreError(updateErr)
			return
		}
	}
	return result, nil
}

func (s *CalendarService) buildAppointment(input AppointmentInput) calendar.Appointment {
	start := input.Start.In(s.cfg.Location)
	end := input.End.In(s.cfg.Location)
	if input.AllDay {
		start = calendar.StartOfDay(start)
		end = calendar.EndOfDay(end)
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = calendar.DefaultColor
	}
	return calendar.Appointment{
		ID:          strings.TrimSpace(input.ID),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Start:       start,
		End:         end,
		Location:    strings.TrimSpace(input.Location),
		Color:       color,
		AllDay:      input.AllDay,
		Attendees:   normalizeAttendees(input.Attendees),
		CreatedBy:   strings.TrimSpace(input.CreatedBy),
	}
}

func (s *CalendarService) conflictWarnings(start, end time.Time, excludeID string) []ConflictWarning {
	key := newWarningKey(start, end, excludeID)
	if cached, ok := s.warnings.Get(key); ok {
		return cached
	}
	generation := s.warnings.Generation()

	ids := s.store.Conflicts(start, end, excludeID)
	if len(ids) == 0 {
		s.warnings.Store(key, generation, nil)
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(ids))
	for _, id := range ids {
		other, err := s.store.Get(id)
		if err != nil {
			continue
		}
		warnings = append(warnings, ConflictWarning{
			AppointmentID: other.ID,
			Title:         other.Title,
			Start:         other.Start,
			End:           other.End,
		})
	}
	s.warnings.Store(key, generation, warnings)
	return warnings
}

func inputFromAppointment(appt calendar.Appointment) AppointmentInput {
	return AppointmentInput{
		ID:          appt.ID,
		Title:       appt.Title,
		Description: appt.Description,
		Start:       appt.Start,
		End:         appt.End,
		Location:    appt.Location,
		Color:       appt.Color,
		AllDay:      appt.AllDay,
		Attendees:   appt.Attendees,
		CreatedBy:   appt.CreatedBy,
	}
}

func validateAppointmentInput(input AppointmentInput) *ValidationError {
	vErr := &ValidationError{}
	if input.ID != "" && !calendar.ValidID(input.ID) {
		vErr.add("id", "id must not contain slashes or name a reserved resource")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	validateRange(input.Start, input.End, vErr)
	for _, attendee := range input.Attendees {
		if !ValidEmail(strings.TrimSpace(attendee)) {
			vErr.add("attendees", "attendees must be valid email addresses")
			break
		}
	}
	if input.CreatedBy != "" && !ValidEmail(strings.TrimSpace(input.CreatedBy)) {
		vErr.add("created_by", "creator must be a valid email address")
	}
	return vErr
}

func validateRange(start, end time.Time, vErr *ValidationError) {
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		vErr.add("time", "end must not be before start")
	}
}
