// Package http exposes the appointment calendar over a JSON API.
//
// The router exposes the following endpoints:
//   - GET /appointments, POST /appointments: list (optionally bounded by the
//     `from` and `to` query parameters) and create appointments exchanging the
//     `appointmentDTO` payload defined in dto.go. Creation responses carry
//     overlapping appointments as `warnings`.
//   - GET /appointments/{id}, PUT /appointments/{id}, DELETE /appointments/{id}.
//   - POST /appointments/conflicts: body {"start","end","exclude_id"}, response
//     {"conflict","ids","conflicts"}.
//   - GET /appointments/stream: server-sent `snapshot` events carrying the full
//     appointment list on connect and after every change.
//   - GET /calendar/month?month=2025-01&selected=2025-01-15: six-week grid.
//   - GET /calendar/day?date=2025-01-15: hourly schedule with layout offsets.
//   - GET /calendar.ics exports, POST /calendar.ics imports iCalendar data.
//   - GET /health.
//
// Timestamps are local wall-clock strings such as 2025-01-15T10:00:00 read in
// the service's configured location. Service errors map to 404 (not found),
// 409 (duplicate id), 422 (validation) and 429 (rate limited).
package http
