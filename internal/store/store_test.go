package store

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
)

func appointment(id string, day, startHour, endHour int) calendar.Appointment {
	return calendar.Appointment{
		ID:        id,
		Title:     "Appointment " + id,
		Start:     time.Date(2025, time.January, day, startHour, 0, 0, 0, time.Local),
		End:       time.Date(2025, time.January, day, endHour, 0, 0, 0, time.Local),
		Color:     calendar.DefaultColor,
		Attendees: []string{"john@example.com"},
		CreatedBy: "user@example.com",
	}
}

func TestStore_AddThenList(t *testing.T) {
	s := New()
	appt := appointment("1", 15, 10, 11)

	if err := s.Add(appt); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	list := s.List()
	matches := 0
	for _, got := range list {
		if got.ID == appt.ID {
			matches++
			if !reflect.DeepEqual(got, appt) {
				t.Fatalf("stored appointment differs: got %+v want %+v", got, appt)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("expected exactly one entry with id %q, got %d", appt.ID, matches)
	}
}

func TestStore_AddDuplicateLeavesStoreUnchanged(t *testing.T) {
	s := New()
	if err := s.Add(appointment("1", 15, 10, 11)); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	before := s.List()

	duplicate := appointment("1", 16, 14, 15)
	duplicate.Title = "Other"
	err := s.Add(duplicate)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	var dupErr *DuplicateIDError
	if !errors.As(err, &dupErr) || dupErr.ID != "1" {
		t.Fatalf("expected DuplicateIDError for id 1, got %#v", err)
	}

	if after := s.List(); !reflect.DeepEqual(before, after) {
		t.Fatalf("store changed after failed add: before %+v after %+v", before, after)
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s := New()
	_ = s.Add(appointment("1", 15, 10, 11))
	_ = s.Add(appointment("2", 16, 14, 15))

	s.Remove("1")
	afterFirst := s.List()
	s.Remove("1")
	s.Remove("never-existed")

	if afterSecond := s.List(); !reflect.DeepEqual(afterFirst, afterSecond) {
		t.Fatalf("second remove changed the store: %+v vs %+v", afterFirst, afterSecond)
	}
	if len(afterFirst) != 1 || afterFirst[0].ID != "2" {
		t.Fatalf("unexpected remaining appointments: %+v", afterFirst)
	}
	if _, err := s.Get("2"); err != nil {
		t.Fatalf("expected index to be rebuilt after removal, got %v", err)
	}
}

func TestStore_UpdateReplacesWholeRecord(t *testing.T) {
	s := New()
	original := appointment("1", 15, 10, 11)
	original.Location = "Conference Room A"
	original.Description = "Weekly team sync"
	_ = s.Add(original)

	replacement := calendar.Appointment{
		ID:    "1",
		Title: "Replaced",
		Start: time.Date(2025, time.January, 17, 8, 0, 0, 0, time.Local),
		End:   time.Date(2025, time.January, 17, 9, 0, 0, 0, time.Local),
		Color: "#ef4444",
	}
	if err := s.Update(replacement); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, err := s.Get("1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !reflect.DeepEqual(got, replacement) {
		t.Fatalf("expected full replacement, got %+v", got)
	}
	if got.Location != "" || got.Description != "" || got.Attendees != nil || got.CreatedBy != "" {
		t.Fatalf("fields from the old version survived: %+v", got)
	}
}

func TestStore_UpdateUnknownID(t *testing.T) {
	s := New()
	_ = s.Add(appointment("1", 15, 10, 11))
	before := s.List()

	err := s.Update(appointment("missing", 15, 12, 13))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if after := s.List(); !reflect.DeepEqual(before, after) {
		t.Fatalf("store changed after failed update")
	}
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	s := New()
	appt := appointment("1", 15, 10, 11)
	_ = s.Add(appt)

	appt.Attendees[0] = "changed-by-caller@example.com"
	list := s.List()
	if list[0].Attendees[0] != "john@example.com" {
		t.Fatalf("store retained caller's attendee slice")
	}

	list[0].Title = "mutated"
	list[0].Attendees[0] = "mutated@example.com"
	again := s.List()
	if again[0].Title == "mutated" || again[0].Attendees[0] == "mutated@example.com" {
		t.Fatalf("mutating a snapshot leaked into the store")
	}
}

func TestStore_ForDateAndForRange(t *testing.T) {
	s := New()
	_ = s.Add(appointment("1", 15, 10, 11))
	_ = s.Add(appointment("2", 16, 14, 15))
	_ = s.Add(appointment("3", 15, 0, 1))

	day := time.Date(2025, time.January, 15, 18, 30, 0, 0, time.Local)
	got := ids(s.ForDate(day))
	if !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("ForDate = %v", got)
	}

	start := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.Local)
	end := time.Date(2025, time.January, 16, 14, 0, 0, 0, time.Local)
	got = ids(s.ForRange(start, end))
	if !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("ForRange should include both bounds, got %v", got)
	}

	if out := s.ForDate(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.Local)); len(out) != 0 {
		t.Fatalf("expected no appointments on an empty day, got %v", out)
	}
}

func TestStore_HasConflict(t *testing.T) {
	s := New()
	_ = s.Add(appointment("1", 15, 10, 11))

	at := func(h, m int) time.Time { return time.Date(2025, time.January, 15, h, m, 0, 0, time.Local) }

	if !s.HasConflict(at(10, 30), at(10, 45), "") {
		t.Fatalf("expected conflict")
	}
	if s.HasConflict(at(11, 0), at(12, 0), "") {
		t.Fatalf("touching ranges must not conflict")
	}
	if s.HasConflict(at(10, 30), at(10, 45), "1") {
		t.Fatalf("excluded id must not conflict")
	}
	if got := s.Conflicts(at(9, 0), at(12, 0), ""); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("Conflicts = %v", got)
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := New()
	_ = s.Add(appointment("1", 15, 10, 11))

	var received [][]string
	sub := s.Subscribe(func(snapshot []calendar.Appointment) {
		received = append(received, ids(snapshot))
	})

	if len(received) != 1 || !reflect.DeepEqual(received[0], []string{"1"}) {
		t.Fatalf("expected immediate snapshot on subscribe, got %v", received)
	}

	_ = s.Add(appointment("2", 16, 14, 15))
	_ = s.Add(appointment("2", 16, 14, 15)) // duplicate, no notification
	_ = s.Update(appointment("1", 15, 12, 13))
	_ = s.Update(appointment("missing", 15, 12, 13)) // not found, no notification
	s.Remove("never-existed")

	want := [][]string{{"1"}, {"1", "2"}, {"1", "2"}, {"1", "2"}}
	if !reflect.DeepEqual(received, want) {
		t.Fatalf("unexpected notifications: got %v want %v", received, want)
	}

	sub.Cancel()
	sub.Cancel()
	s.Remove("1")
	if len(received) != len(want) {
		t.Fatalf("expected no notifications after cancel, got %v", received)
	}
}

func TestStore_SubscribersReceiveIndependentSnapshots(t *testing.T) {
	s := New()
	_ = s.Add(appointment("1", 15, 10, 11))

	var first, second []calendar.Appointment
	s.Subscribe(func(snapshot []calendar.Appointment) { first = snapshot })
	s.Subscribe(func(snapshot []calendar.Appointment) { second = snapshot })

	_ = s.Add(appointment("2", 16, 14, 15))
	first[0].Title = "mutated"

	if second[0].Title == "mutated" {
		t.Fatalf("observers share a snapshot container")
	}
	if got, _ := s.Get("1"); got.Title == "mutated" {
		t.Fatalf("observer mutation leaked into the store")
	}
}

func TestStore_CancelInsideCallback(t *testing.T) {
	s := New()
	calls := 0
	var sub *Subscription
	sub = s.Subscribe(func([]calendar.Appointment) {
		calls++
		if calls == 2 {
			sub.Cancel()
		}
	})

	_ = s.Add(appointment("1", 15, 10, 11))
	_ = s.Add(appointment("2", 16, 10, 11))

	if calls != 2 {
		t.Fatalf("expected 2 calls before cancellation took effect, got %d", calls)
	}
}

func TestStore_SubscribeNilObserver(t *testing.T) {
	s := New()
	sub := s.Subscribe(nil)
	sub.Cancel()
	if err := s.Add(appointment("1", 15, 10, 11)); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
}

func TestStore_ObserverMayMutateStore(t *testing.T) {
	s := New()

	// The first observer echoes every new appointment with a follow-up entry.
	s.Subscribe(func(snapshot []calendar.Appointment) {
		seen := make(map[string]bool, len(snapshot))
		for _, appt := range snapshot {
			seen[appt.ID] = true
		}
		if seen["1"] && !seen["echo"] {
			if err := s.Add(appointment("echo", 15, 12, 13)); err != nil {
				t.Errorf("Add from observer returned error: %v", err)
			}
		}
	})

	var received [][]string
	s.Subscribe(func(snapshot []calendar.Appointment) {
		received = append(received, ids(snapshot))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Add(appointment("1", 15, 10, 11))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Add did not return while an observer mutated the store")
	}

	want := [][]string{{}, {"1"}, {"1", "echo"}}
	if !reflect.DeepEqual(received, want) {
		t.Fatalf("unexpected notifications: got %v want %v", received, want)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 stored appointments, got %d", s.Len())
	}
}

func TestStore_SubscribeInsideCallback(t *testing.T) {
	s := New()

	var nested [][]string
	var outer *Subscription
	outer = s.Subscribe(func(snapshot []calendar.Appointment) {
		if len(snapshot) == 1 {
			s.Subscribe(func(inner []calendar.Appointment) {
				nested = append(nested, ids(inner))
			})
			outer.Cancel()
		}
	})

	_ = s.Add(appointment("1", 15, 10, 11))
	if !reflect.DeepEqual(nested, [][]string{{"1"}}) {
		t.Fatalf("expected nested subscriber to get its first snapshot, got %v", nested)
	}

	_ = s.Add(appointment("2", 16, 10, 11))
	if !reflect.DeepEqual(nested, [][]string{{"1"}, {"1", "2"}}) {
		t.Fatalf("expected nested subscriber to follow later mutations, got %v", nested)
	}
}

func TestStore_ConcurrentMutationsAreAllDelivered(t *testing.T) {
	s := New()

	var last []string
	calls := 0
	s.Subscribe(func(snapshot []calendar.Appointment) {
		calls++
		last = ids(snapshot)
	})

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Add(appointment(fmt.Sprintf("c-%d", i), 15, 10, 11))
		}(i)
	}
	wg.Wait()

	if calls != writers+1 {
		t.Fatalf("expected %d notifications, got %d", writers+1, calls)
	}
	if len(last) != writers {
		t.Fatalf("expected final snapshot to hold %d appointments, got %v", writers, last)
	}
}

func ids(appointments []calendar.Appointment) []string {
	out := make([]string, 0, len(appointments))
	for _, appt := range appointments {
		out = append(out, appt.ID)
	}
	return out
}
