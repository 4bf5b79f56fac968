package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/calendar"
)

// renderMonth prints the grid with today marked ">", the selected day in
// brackets and days holding appointments suffixed "*", followed by the
// month's appointments.
func renderMonth(w io.Writer, view application.MonthView) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", view.Title)

	headers := make([]string, 0, len(view.Weekdays))
	for _, name := range view.Weekdays {
		headers = append(headers, fmt.Sprintf(" %-3s", name))
	}
	b.WriteString(strings.Join(headers, " "))
	b.WriteString("\n")

	for i, day := range view.Days {
		b.WriteString(monthCell(day))
		if (i+1)%7 == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}

	var listed bool
	for _, day := range view.Days {
		if !day.IsCurrentMonth {
			continue
		}
		for _, appt := range day.Appointments {
			if !listed {
				b.WriteString("\n")
				listed = true
			}
			fmt.Fprintf(&b, "%s  %-11s  %s\n", day.Date.Format("2006-01-02"), timeRange(appt), appt.Title)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func monthCell(day calendar.CalendarDay) string {
	if !day.IsCurrentMonth {
		return fmt.Sprintf(" %2d ", day.Date.Day())
	}
	prefix, suffix := " ", " "
	if day.IsToday {
		prefix = ">"
	}
	if len(day.Appointments) > 0 {
		suffix = "*"
	}
	if day.IsSelected {
		prefix, suffix = "[", "]"
	}
	return fmt.Sprintf("%s%2d%s", prefix, day.Date.Day(), suffix)
}

// renderDay prints one line per hour. Hours covered by an appointment that
// started earlier are marked "|".
func renderDay(w io.Writer, view application.DayView) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", view.Date.Format("Monday, January 2 2006"))

	for _, row := range view.Rows {
		fmt.Fprintf(&b, "%5s ", row.Label)
		switch {
		case len(row.Appointments) > 0:
			parts := make([]string, 0, len(row.Appointments))
			for _, appt := range row.Appointments {
				entry := fmt.Sprintf("%s (%s)", appt.Title, timeRange(appt))
				if appt.Location != "" {
					entry += " @ " + appt.Location
				}
				parts = append(parts, entry)
			}
			b.WriteString(strings.Join(parts, "; "))
		case row.Active:
			b.WriteString("|")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, strings.ReplaceAll(b.String(), " \n", "\n"))
	return err
}

func timeRange(appt calendar.Appointment) string {
	if appt.AllDay {
		return "all day"
	}
	return appt.Start.Format("15:04") + "-" + appt.End.Format("15:04")
}
