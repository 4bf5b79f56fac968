package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/logging"
	"github.com/example/appointment-calendar/internal/store"
)

var (
	errBadRequestBody       = errors.New("request body is malformed")
	errInvalidAppointmentID = errors.New("appointment id is invalid")
	errTooManyRequests      = errors.New("too many requests")
	errStreamingUnsupported = errors.New("streaming is not supported")
)

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// sentinelStatus maps well-known service failures onto HTTP responses.
var sentinelStatus = []struct {
	targets []error
	status  int
	code    string
	message string
}{
	{
		targets: []error{application.ErrNotFound, store.ErrNotFound},
		status:  http.StatusNotFound,
		code:    "NOT_FOUND",
	},
	{
		targets: []error{application.ErrAlreadyExists, store.ErrDuplicateID},
		status:  http.StatusConflict,
		code:    "DUPLICATE_ID",
		message: "an appointment with this id already exists",
	},
	{
		targets: []error{context.Canceled, context.DeadlineExceeded},
		status:  http.StatusServiceUnavailable,
	},
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

// writeJSON encodes payload before touching the response so an encoding
// failure still produces a clean 500.
func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	if payload == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		r.log(ctx).ErrorContext(ctx, "encode response", "status", status, "error", err)
		http.Error(w, statusMessage(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body.Bytes()); err != nil {
		r.log(ctx).DebugContext(ctx, "write response", "error", err)
	}
}

// writeError reports a request-level failure, using err's text as the message.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Message: statusMessage(status)}
	if err != nil {
		r.log(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
		if text := strings.TrimSpace(err.Error()); text != "" {
			resp.Message = text
		}
	}
	r.writeJSON(ctx, w, status, resp)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, resp := classifyServiceError(err)
	if status >= http.StatusInternalServerError {
		r.log(ctx).ErrorContext(ctx, "service call failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, resp)
}

func classifyServiceError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    vErr.FieldErrors,
		}
	}

	for _, mapping := range sentinelStatus {
		for _, target := range mapping.targets {
			if !errors.Is(err, target) {
				continue
			}
			message := mapping.message
			if message == "" {
				message = statusMessage(mapping.status)
			}
			return mapping.status, errorResponse{ErrorCode: mapping.code, Message: message}
		}
	}
	return http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is invalid"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusMethodNotAllowed:
		return "method not allowed"
	case http.StatusConflict:
		return "the request conflicts with the current state of the resource"
	case http.StatusRequestEntityTooLarge:
		return "the request body is too large"
	case http.StatusUnprocessableEntity:
		return "the submitted values are invalid"
	case http.StatusTooManyRequests:
		return "too many requests, slow down"
	case http.StatusServiceUnavailable:
		return "the request was cancelled"
	default:
		return "an internal error occurred"
	}
}
