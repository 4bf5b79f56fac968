package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/grid"
)

// maxImportBytes caps the size of an uploaded iCalendar document.
const maxImportBytes = 10 << 20

type calendarService interface {
	Location() *time.Location
	Today() time.Time
	MonthView(ctx context.Context, month grid.Month, selected time.Time) (application.MonthView, error)
	DayView(ctx context.Context, date time.Time) (application.DayView, error)
	ExportICS(ctx context.Context, w io.Writer) error
	ImportICS(ctx context.Context, r io.Reader) (application.ImportResult, error)
}

type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

// Month serves the grid for ?month=YYYY-MM. Without a month the selected
// date's month is shown, falling back to the current month.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	vErr := &application.ValidationError{}
	month, hasMonth := parseMonthField(vErr, "month", query.Get("month"))
	selected := parseDateField(vErr, "selected", query.Get("selected"), h.service.Location())
	if vErr.HasErrors() {
		h.log(r.Context(), "Month", "error_kind", "validation").ErrorContext(r.Context(), "invalid month query", "error", vErr)
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}
	if !hasMonth {
		if !selected.IsZero() {
			month = grid.MonthOf(selected)
		} else {
			month = grid.MonthOf(h.service.Today())
		}
	}

	logger := h.log(r.Context(), "Month", "month", month.String())
	view, err := h.service.MonthView(r.Context(), month, selected)
	if err != nil {
		logger.ErrorContext(r.Context(), "month view failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMonthViewResponse(view))
}

// Day serves the hourly schedule for ?date=YYYY-MM-DD, defaulting to today.
func (h *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	vErr := &application.ValidationError{}
	date := parseDateField(vErr, "date", r.URL.Query().Get("date"), h.service.Location())
	if vErr.HasErrors() {
		h.log(r.Context(), "Day", "error_kind", "validation").ErrorContext(r.Context(), "invalid day query", "error", vErr)
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}
	if date.IsZero() {
		date = h.service.Today()
	}

	logger := h.log(r.Context(), "Day", "date", date.Format(dateLayout))
	view, err := h.service.DayView(r.Context(), date)
	if err != nil {
		logger.ErrorContext(r.Context(), "day view failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDayViewResponse(view))
}

func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	if err := h.service.ExportICS(r.Context(), w); err != nil {
		// Headers may already be on the wire; log only.
		h.log(r.Context(), "ExportICS").ErrorContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
	}
}

func (h *CalendarHandler) ImportICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ImportICS")
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.ErrorContext(r.Context(), "calendar upload too large", "error", err, "limit", tooLarge.Limit)
			h.responder.writeError(r.Context(), w, http.StatusRequestEntityTooLarge, errors.New("calendar upload is too large"))
			return
		}
		logger.ErrorContext(r.Context(), "failed to read calendar upload", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.ImportICS(r.Context(), bytes.NewReader(payload))
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar imported", "created", len(result.Created), "updated", len(result.Updated), "skipped", len(result.Skipped))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toImportResponse(result))
}
