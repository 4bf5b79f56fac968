package scheduler

import (
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
)

// Overlaps reports whether the ranges [aStart, aEnd) and [bStart, bEnd)
// intersect. Touching endpoints do not count as an overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// HasConflict reports whether the candidate range overlaps any existing
// appointment. The appointment identified by excludeID is skipped so an entry
// being edited does not conflict with itself. All-day appointments never
// participate in conflict detection.
func HasConflict(existing []calendar.Appointment, start, end time.Time, excludeID string) bool {
	for _, appt := range existing {
		if !participates(appt, excludeID) {
			continue
		}
		if Overlaps(start, end, appt.Start, appt.End) {
			return true
		}
	}
	return false
}

// FindConflicts returns the identifiers of every appointment overlapping the
// candidate range, in the order they appear in existing.
func FindConflicts(existing []calendar.Appointment, start, end time.Time, excludeID string) []string {
	var ids []string
	for _, appt := range existing {
		if !participates(appt, excludeID) {
			continue
		}
		if Overlaps(start, end, appt.Start, appt.End) {
			ids = append(ids, appt.ID)
		}
	}
	return ids
}

func participates(appt calendar.Appointment, excludeID string) bool {
	if excludeID != "" && appt.ID == excludeID {
		return false
	}
	return !appt.AllDay
}
