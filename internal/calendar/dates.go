package calendar

import "time"

// SameDay reports whether a and b fall on the same calendar day, comparing
// the year, month and day of each value's own wall clock.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns midnight of the day containing t, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the day containing t. All-day appointments
// end at this instant.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AtHour returns the instant h:00 on the day containing t.
func AtHour(t time.Time, h int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, t.Location())
}

// WallClockLayouts lists the accepted textual forms of a local timestamp.
var WallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// WallClockLayout is the canonical output form of a local timestamp.
const WallClockLayout = "2006-01-02T15:04:05"

// ParseWallClock reads a local timestamp without zone information in loc.
func ParseWallClock(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var firstErr error
	for _, layout := range WallClockLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
