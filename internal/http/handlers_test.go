package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAPI(t *testing.T) (http.Handler, *application.CalendarService) {
	t.Helper()
	factory := testfixtures.NewServiceFactory()
	service := factory.NewCalendarService(testfixtures.NewStore(testfixtures.SampleAppointments()...), discardLogger())
	router := NewRouter(RouterConfig{
		Appointments: NewAppointmentHandler(service, discardLogger()),
		Calendar:     NewCalendarHandler(service, discardLogger()),
	})
	return router, service
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestAppointmentHandlers(t *testing.T) {
	t.Parallel()

	t.Run("list returns every appointment in insertion order", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/appointments", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[appointmentListResponse](t, rec)
		if len(resp.Appointments) != 3 {
			t.Fatalf("expected 3 appointments, got %d", len(resp.Appointments))
		}
		for i, want := range []string{"1", "2", "3"} {
			if resp.Appointments[i].ID != want {
				t.Fatalf("appointment %d: expected id %s, got %s", i, want, resp.Appointments[i].ID)
			}
		}
		if resp.Appointments[0].Start != "2025-01-15T10:00:00" {
			t.Fatalf("unexpected wall-clock start %q", resp.Appointments[0].Start)
		}
	})

	t.Run("list narrows by from and to", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/appointments?from=2025-01-16T00:00&to=2025-01-16T23:59", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[appointmentListResponse](t, rec)
		if len(resp.Appointments) != 1 || resp.Appointments[0].ID != "2" {
			t.Fatalf("expected only the project review, got %+v", resp.Appointments)
		}
	})

	t.Run("list rejects malformed bounds", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/appointments?from=yesterday", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.Errors["from"] == "" {
			t.Fatalf("expected from field error, got %+v", resp)
		}
	})

	t.Run("create assigns an id and reports overlaps", func(t *testing.T) {
		t.Parallel()
		router, service := newTestAPI(t)

		body := `{"title":"Standup","start":"2025-01-15T10:30","end":"2025-01-15T11:30","attendees":["dev@example.com"]}`
		rec := doRequest(t, router, http.MethodPost, "/appointments", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Location"); got != "/appointments/appt-1" {
			t.Fatalf("unexpected Location header %q", got)
		}
		resp := decodeBody[appointmentResponse](t, rec)
		if resp.Appointment.ID != "appt-1" || resp.Appointment.CreatedBy != "user@example.com" {
			t.Fatalf("unexpected appointment %+v", resp.Appointment)
		}
		if resp.Appointment.Color != "#3b82f6" {
			t.Fatalf("expected default colour, got %q", resp.Appointment.Color)
		}
		if len(resp.Warnings) != 1 || resp.Warnings[0].AppointmentID != "1" {
			t.Fatalf("expected a warning about the team meeting, got %+v", resp.Warnings)
		}

		if _, err := service.GetAppointment(context.Background(), "appt-1"); err != nil {
			t.Fatalf("created appointment not stored: %v", err)
		}
	})

	t.Run("create rejects malformed and invalid bodies", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodPost, "/appointments", `{"title":`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
		}

		rec = doRequest(t, router, http.MethodPost, "/appointments", `{"start":"2025-01-15T10:00","end":"2025-01-15T09:00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.Errors["title"] == "" || resp.Errors["time"] == "" {
			t.Fatalf("expected title and time errors, got %+v", resp.Errors)
		}

		rec = doRequest(t, router, http.MethodPost, "/appointments", `{"title":"x","start":"soon","end":"2025-01-15T09:00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for unparseable start, got %d", rec.Code)
		}
		resp = decodeBody[errorResponse](t, rec)
		if resp.Errors["start"] == "" {
			t.Fatalf("expected start error, got %+v", resp.Errors)
		}
	})

	t.Run("create with a taken id maps to 409", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		body := `{"id":"1","title":"Copy","start":"2025-01-22T10:00","end":"2025-01-22T11:00"}`
		rec := doRequest(t, router, http.MethodPost, "/appointments", body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if resp := decodeBody[errorResponse](t, rec); resp.ErrorCode != "DUPLICATE_ID" {
			t.Fatalf("unexpected error code %q", resp.ErrorCode)
		}
	})

	t.Run("create rejects ids that collide with fixed routes", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		for _, id := range []string{"stream", "conflicts"} {
			body := `{"id":"` + id + `","title":"Hidden","start":"2025-01-22T10:00","end":"2025-01-22T11:00"}`
			rec := doRequest(t, router, http.MethodPost, "/appointments", body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422 for id %q, got %d", id, rec.Code)
			}
			if resp := decodeBody[errorResponse](t, rec); resp.Errors["id"] == "" {
				t.Fatalf("expected id field error, got %+v", resp)
			}
		}
	})

	t.Run("get returns one appointment or 404", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/appointments/2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp := decodeBody[appointmentResponse](t, rec); resp.Appointment.Title != "Project Review" {
			t.Fatalf("unexpected appointment %+v", resp.Appointment)
		}

		rec = doRequest(t, router, http.MethodGet, "/appointments/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("update replaces fields and keeps the creator", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		body := `{"title":"Quarterly Review","start":"2025-01-16T15:00","end":"2025-01-16T16:00","color":"#ef4444"}`
		rec := doRequest(t, router, http.MethodPut, "/appointments/2", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decodeBody[appointmentResponse](t, rec)
		if resp.Appointment.Title != "Quarterly Review" || resp.Appointment.Start != "2025-01-16T15:00:00" {
			t.Fatalf("unexpected appointment %+v", resp.Appointment)
		}
		if resp.Appointment.CreatedBy != "user@example.com" {
			t.Fatalf("expected creator to be preserved, got %q", resp.Appointment.CreatedBy)
		}

		rec = doRequest(t, router, http.MethodPut, "/appointments/2", `{"id":"9","title":"x","start":"2025-01-16T15:00","end":"2025-01-16T16:00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for id change, got %d", rec.Code)
		}

		rec = doRequest(t, router, http.MethodPut, "/appointments/missing", `{"title":"x","start":"2025-01-16T15:00","end":"2025-01-16T16:00"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
		}
	})

	t.Run("delete removes the appointment", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodDelete, "/appointments/1", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec := doRequest(t, router, http.MethodGet, "/appointments/1", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", rec.Code)
		}
		if rec := doRequest(t, router, http.MethodDelete, "/appointments/1", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 on second delete, got %d", rec.Code)
		}
	})

	t.Run("unsupported methods advertise the allowed ones", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodPatch, "/appointments/1", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != "GET, PUT, DELETE" {
			t.Fatalf("unexpected Allow header %q", got)
		}
	})
}

func TestConflictHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		conflict bool
		ids      []string
	}{
		{
			name:     "overlapping timed appointment",
			body:     `{"start":"2025-01-15T10:30","end":"2025-01-15T10:45"}`,
			conflict: true,
			ids:      []string{"1"},
		},
		{
			name: "excluded appointment is ignored",
			body: `{"start":"2025-01-15T10:30","end":"2025-01-15T10:45","exclude_id":"1"}`,
			ids:  []string{},
		},
		{
			name: "touching boundaries do not overlap",
			body: `{"start":"2025-01-15T11:00","end":"2025-01-15T12:00"}`,
			ids:  []string{},
		},
		{
			name: "all-day appointments never conflict",
			body: `{"start":"2025-01-20T09:00","end":"2025-01-20T17:00"}`,
			ids:  []string{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router, _ := newTestAPI(t)

			rec := doRequest(t, router, http.MethodPost, "/appointments/conflicts", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			resp := decodeBody[conflictResponse](t, rec)
			if resp.Conflict != tc.conflict {
				t.Fatalf("expected conflict=%v, got %v", tc.conflict, resp.Conflict)
			}
			if strings.Join(resp.IDs, ",") != strings.Join(tc.ids, ",") {
				t.Fatalf("expected ids %v, got %v", tc.ids, resp.IDs)
			}
		})
	}

	t.Run("inverted range is a validation error", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodPost, "/appointments/conflicts", `{"start":"2025-01-15T12:00","end":"2025-01-15T11:00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestCalendarHandlers(t *testing.T) {
	t.Parallel()

	t.Run("month view lays out six weeks", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/calendar/month?month=2025-01&selected=2025-01-15", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decodeBody[monthViewResponse](t, rec)
		if resp.Title != "January 2025" || resp.Previous != "2024-12" || resp.Next != "2025-02" {
			t.Fatalf("unexpected header %+v", resp)
		}
		if len(resp.Days) != 42 || len(resp.Weekdays) != 7 {
			t.Fatalf("expected 42 days and 7 weekdays, got %d and %d", len(resp.Days), len(resp.Weekdays))
		}
		if resp.Days[0].Date != "2024-12-29" || resp.Days[0].IsCurrentMonth {
			t.Fatalf("unexpected first cell %+v", resp.Days[0])
		}
		day := resp.Days[17]
		if day.Date != "2025-01-15" || !day.IsSelected || !day.IsToday || len(day.Appointments) != 1 {
			t.Fatalf("unexpected cell for the 15th %+v", day)
		}
	})

	t.Run("month defaults to the current month", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/calendar/month", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp := decodeBody[monthViewResponse](t, rec); resp.Month != "2025-01" {
			t.Fatalf("expected current month, got %q", resp.Month)
		}

		rec = doRequest(t, router, http.MethodGet, "/calendar/month?month=January", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for malformed month, got %d", rec.Code)
		}
	})

	t.Run("day view projects appointments onto hours", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestAPI(t)

		rec := doRequest(t, router, http.MethodGet, "/calendar/day?date=2025-01-15", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[dayViewResponse](t, rec)
		if resp.Date != "2025-01-15" || len(resp.Rows) != 24 || len(resp.Appointments) != 1 {
			t.Fatalf("unexpected day view %+v", resp)
		}
		if ids := resp.Rows[10].AppointmentIDs; len(ids) != 1 || ids[0] != "1" {
			t.Fatalf("expected the meeting at 10:00, got %v", ids)
		}
		if !resp.Rows[10].Active || resp.Rows[11].Active {
			t.Fatalf("unexpected activity flags around the meeting")
		}
		if offset := resp.Offsets["1"]; offset.Top != 0 || offset.Height != 60 {
			t.Fatalf("unexpected offset %+v", offset)
		}

		rec = doRequest(t, router, http.MethodGet, "/calendar/day?date=15.01.2025", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for malformed date, got %d", rec.Code)
		}
	})
}

func TestICSHandlers(t *testing.T) {
	t.Parallel()

	source, _ := newTestAPI(t)
	rec := doRequest(t, source, http.MethodGet, "/calendar.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	payload := rec.Body.String()
	if !strings.Contains(payload, "BEGIN:VCALENDAR") || !strings.Contains(payload, "Team Meeting") {
		t.Fatalf("unexpected export %q", payload)
	}

	factory := testfixtures.NewServiceFactory()
	target := factory.NewCalendarService(testfixtures.NewStore(), discardLogger())
	router := NewRouter(RouterConfig{Calendar: NewCalendarHandler(target, discardLogger())})

	rec = doRequest(t, router, http.MethodPost, "/calendar.ics", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[importResponse](t, rec)
	if len(resp.Created) != 3 || len(resp.Updated) != 0 {
		t.Fatalf("unexpected import result %+v", resp)
	}

	rec = doRequest(t, router, http.MethodPost, "/calendar.ics", payload)
	if resp := decodeBody[importResponse](t, rec); len(resp.Updated) != 3 || len(resp.Created) != 0 {
		t.Fatalf("expected re-import to update, got %+v", resp)
	}

	rec = doRequest(t, router, http.MethodPost, "/calendar.ics", "not a calendar")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for garbage, got %d", rec.Code)
	}
}

func TestStreamHandler(t *testing.T) {
	t.Parallel()

	router, service := newTestAPI(t)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/appointments/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first := readSnapshot(t, reader)
	if len(first.Appointments) != 3 {
		t.Fatalf("expected initial snapshot of 3, got %d", len(first.Appointments))
	}

	fixture := testfixtures.NewAppointmentFixture(
		testfixtures.WithAppointmentID("live"),
		testfixtures.WithRange(testfixtures.At(17, 9, 0), testfixtures.At(17, 10, 0)),
	)
	if _, _, err := service.CreateAppointment(ctx, fixture.Input()); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	second := readSnapshot(t, reader)
	if len(second.Appointments) != 4 || second.Appointments[3].ID != "live" {
		t.Fatalf("expected snapshot with the new appointment, got %+v", second.Appointments)
	}
}

func readSnapshot(t *testing.T, reader *bufio.Reader) appointmentListResponse {
	t.Helper()
	var event string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if event != "snapshot" {
				t.Fatalf("unexpected event %q", event)
			}
			var out appointmentListResponse
			if err := json.NewDecoder(bytes.NewBufferString(strings.TrimPrefix(line, "data: "))).Decode(&out); err != nil {
				t.Fatalf("decode snapshot: %v", err)
			}
			return out
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	router := NewRouter(RouterConfig{})

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if rec := doRequest(t, router, http.MethodPost, "/health", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
