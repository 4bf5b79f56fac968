package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/store"
)

type appointmentService interface {
	Location() *time.Location
	ListAppointments(ctx context.Context, params application.ListAppointmentsParams) ([]calendar.Appointment, error)
	GetAppointment(ctx context.Context, id string) (calendar.Appointment, error)
	CreateAppointment(ctx context.Context, input application.AppointmentInput) (calendar.Appointment, []application.ConflictWarning, error)
	UpdateAppointment(ctx context.Context, id string, input application.AppointmentInput) (calendar.Appointment, []application.ConflictWarning, error)
	DeleteAppointment(ctx context.Context, id string) error
	CheckConflict(ctx context.Context, start, end time.Time, excludeID string) ([]application.ConflictWarning, error)
	Subscribe(fn store.Observer) *store.Subscription
}

type AppointmentHandler struct {
	service   appointmentService
	responder responder
	logger    *slog.Logger
}

func NewAppointmentHandler(service appointmentService, logger *slog.Logger) *AppointmentHandler {
	base := defaultLogger(logger)
	return &AppointmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AppointmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AppointmentHandler", operation, attrs...)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loc := h.service.Location()
	query := r.URL.Query()
	vErr := &application.ValidationError{}
	from := parseTimestampField(vErr, "from", query.Get("from"), loc)
	to := parseTimestampField(vErr, "to", query.Get("to"), loc)
	if vErr.HasErrors() {
		h.log(r.Context(), "List", "error_kind", "validation").ErrorContext(r.Context(), "invalid list query", "error", vErr)
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	var params application.ListAppointmentsParams
	if !from.IsZero() {
		params.From = &from
	}
	if !to.IsZero() {
		params.To = &to
	}

	logger := h.log(r.Context(), "List")
	appointments, err := h.service.ListAppointments(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.DebugContext(r.Context(), "appointments listed", "count", len(appointments))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentListResponse{Appointments: toAppointmentDTOs(appointments)})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := AppointmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing appointment id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointmentID)
		return
	}

	logger := h.log(r.Context(), "Get", "appointment_id", id)
	appt, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Appointment: toAppointmentDTO(appt)})
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode appointment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	input, vErr := req.toInput(h.service.Location())
	if vErr.HasErrors() {
		logger.ErrorContext(r.Context(), "invalid appointment timestamps", "error", vErr, "error_kind", "validation")
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	appt, warnings, err := h.service.CreateAppointment(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("appointment_id", appt.ID).InfoContext(r.Context(), "appointment created", "conflicts", len(warnings))
	w.Header().Set("Location", "/appointments/"+appt.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, appointmentResponse{
		Appointment: toAppointmentDTO(appt),
		Warnings:    toConflictWarningDTOs(warnings),
	})
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := AppointmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing appointment id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointmentID)
		return
	}

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "appointment_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode appointment update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "appointment_id", id)

	input, vErr := req.toInput(h.service.Location())
	if vErr.HasErrors() {
		logger.ErrorContext(r.Context(), "invalid appointment timestamps", "error", vErr, "error_kind", "validation")
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	appt, warnings, err := h.service.UpdateAppointment(r.Context(), id, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment updated", "conflicts", len(warnings))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{
		Appointment: toAppointmentDTO(appt),
		Warnings:    toConflictWarningDTOs(warnings),
	})
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := AppointmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing appointment id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointmentID)
		return
	}

	logger := h.log(r.Context(), "Delete", "appointment_id", id)
	if err := h.service.DeleteAppointment(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "appointment delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AppointmentHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Conflicts", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode conflict request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	loc := h.service.Location()
	vErr := &application.ValidationError{}
	start := parseTimestampField(vErr, "start", req.Start, loc)
	end := parseTimestampField(vErr, "end", req.End, loc)
	if vErr.HasErrors() {
		h.log(r.Context(), "Conflicts", "error_kind", "validation").ErrorContext(r.Context(), "invalid conflict range", "error", vErr)
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	logger := h.log(r.Context(), "Conflicts", "exclude_id", req.ExcludeID)
	warnings, err := h.service.CheckConflict(r.Context(), start, end, strings.TrimSpace(req.ExcludeID))
	if err != nil {
		logger.ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	ids := make([]string, 0, len(warnings))
	for _, warning := range warnings {
		ids = append(ids, warning.AppointmentID)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictResponse{
		Conflict:  len(ids) > 0,
		IDs:       ids,
		Conflicts: toConflictWarningDTOs(warnings),
	})
}

// Stream emits a "snapshot" server-sent event with the full appointment list
// on connect and after every change, until the client goes away.
func (h *AppointmentHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	logger := h.log(r.Context(), "Stream")

	// Only the latest snapshot matters to a slow client.
	updates := make(chan []calendar.Appointment, 1)
	sub := h.service.Subscribe(func(snapshot []calendar.Appointment) {
		select {
		case updates <- snapshot:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snapshot:
		default:
		}
	})
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.InfoContext(r.Context(), "stream opened")
	defer logger.InfoContext(r.Context(), "stream closed")

	var seq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot := <-updates:
			seq++
			payload, err := json.Marshal(appointmentListResponse{Appointments: toAppointmentDTOs(snapshot)})
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to encode snapshot", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", seq, payload); err != nil {
				logger.DebugContext(r.Context(), "stream write failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
