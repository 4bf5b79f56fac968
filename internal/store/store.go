package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/scheduler"
)

// Observer receives a snapshot of the appointment collection. The slice is a
// private copy owned by the observer. Observers may call back into the store;
// mutations made from a callback are delivered once the current delivery
// round finishes.
type Observer func(snapshot []calendar.Appointment)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store owns the canonical, in-memory appointment collection.
//
// Every mutation queues a snapshot for the observers registered at that
// moment. Whichever caller finds no delivery in progress drains the queue, so
// observers receive snapshots in mutation order, one callback at a time. A
// mutation issued while another goroutine is delivering returns as soon as it
// is applied; its notification follows the ones already queued.
type Store struct {
	mu           sync.RWMutex
	appointments []calendar.Appointment
	index        map[string]int
	observers    []*Subscription
	nextSub      uint64

	pending    []delivery
	delivering bool

	logger *slog.Logger
}

type delivery struct {
	observers []*Subscription
	snapshot  []calendar.Appointment
}

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		index:  make(map[string]int),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current snapshot in insertion order.
func (s *Store) List() []calendar.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calendar.CloneAll(s.appointments)
}

// Len reports the number of stored appointments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.appointments)
}

// Get returns the appointment with the given id.
func (s *Store) Get(id string) (calendar.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return calendar.Appointment{}, &NotFoundError{ID: id}
	}
	return s.appointments[idx].Clone(), nil
}

// Add appends a new appointment. It fails with ErrDuplicateID when the id is
// already present, leaving the store unchanged.
func (s *Store) Add(appt calendar.Appointment) error {
	s.mu.Lock()
	if _, ok := s.index[appt.ID]; ok {
		s.mu.Unlock()
		return &DuplicateIDError{ID: appt.ID}
	}
	s.index[appt.ID] = len(s.appointments)
	s.appointments = append(s.appointments, appt.Clone())
	count := len(s.appointments)
	s.enqueueLocked()
	s.mu.Unlock()

	s.logger.Debug("appointment added", "appointment_id", appt.ID, "count", count)
	s.drain()
	return nil
}

// Update replaces the appointment sharing appt's id. No field of the previous
// record survives except the id. It fails with ErrNotFound when missing.
func (s *Store) Update(appt calendar.Appointment) error {
	s.mu.Lock()
	idx, ok := s.index[appt.ID]
	if !ok {
		s.mu.Unlock()
		return &NotFoundError{ID: appt.ID}
	}
	s.appointments[idx] = appt.Clone()
	s.enqueueLocked()
	s.mu.Unlock()

	s.logger.Debug("appointment updated", "appointment_id", appt.ID)
	s.drain()
	return nil
}

// Remove deletes the appointment with the given id. Removing an unknown id is
// a no-op; observers are notified either way.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	removed := false
	if idx, ok := s.index[id]; ok {
		s.appointments = append(s.appointments[:idx], s.appointments[idx+1:]...)
		s.reindexLocked()
		removed = true
	}
	s.enqueueLocked()
	s.mu.Unlock()

	s.logger.Debug("appointment removed", "appointment_id", id, "existed", removed)
	s.drain()
}

// ForDate returns the appointments starting on the same calendar day as date.
func (s *Store) ForDate(date time.Time) []calendar.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []calendar.Appointment
	for _, appt := range s.appointments {
		if calendar.SameDay(appt.Start, date) {
			out = append(out, appt.Clone())
		}
	}
	return out
}

// ForRange returns the appointments whose start lies within [start, end].
func (s *Store) ForRange(start, end time.Time) []calendar.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []calendar.Appointment
	for _, appt := range s.appointments {
		if appt.Start.Before(start) || appt.Start.After(end) {
			continue
		}
		out = append(out, appt.Clone())
	}
	return out
}

// HasConflict reports whether [start, end) overlaps any stored, timed
// appointment other than excludeID.
func (s *Store) HasConflict(start, end time.Time, excludeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scheduler.HasConflict(s.appointments, start, end, excludeID)
}

// Conflicts returns the ids of every stored appointment overlapping [start, end).
func (s *Store) Conflicts(start, end time.Time, excludeID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scheduler.FindConflicts(s.appointments, start, end, excludeID)
}

// Subscribe registers fn and invokes it with the current snapshot before
// returning. When a delivery is already running (inside an observer callback
// or on another goroutine), that first snapshot is queued behind it instead.
// fn is invoked again after every successful mutation until the subscription
// is cancelled.
func (s *Store) Subscribe(fn Observer) *Subscription {
	if fn == nil {
		return &Subscription{}
	}

	s.mu.Lock()
	s.nextSub++
	sub := &Subscription{store: s, id: s.nextSub, fn: fn}
	s.observers = append(s.observers, sub)
	s.pending = append(s.pending, delivery{
		observers: []*Subscription{sub},
		snapshot:  calendar.CloneAll(s.appointments),
	})
	s.mu.Unlock()

	s.drain()
	return sub
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.observers {
		if sub.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// enqueueLocked queues the current collection for every registered observer.
func (s *Store) enqueueLocked() {
	if len(s.observers) == 0 {
		return
	}
	observers := make([]*Subscription, len(s.observers))
	copy(observers, s.observers)
	s.pending = append(s.pending, delivery{
		observers: observers,
		snapshot:  calendar.CloneAll(s.appointments),
	})
}

// drain delivers queued snapshots unless another call is already doing so.
// Callbacks run without the store lock held.
func (s *Store) drain() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	finished := false
	defer func() {
		// An observer panicked; let the next mutation resume delivery.
		if !finished {
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
		}
	}()

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = delivery{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		deliver(next.observers, next.snapshot)

		s.mu.Lock()
	}
	s.delivering = false
	finished = true
	s.mu.Unlock()
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.appointments))
	for i, appt := range s.appointments {
		s.index[appt.ID] = i
	}
}

func deliver(observers []*Subscription, snapshot []calendar.Appointment) {
	for i, sub := range observers {
		if sub.cancelled.Load() {
			continue
		}
		if i == len(observers)-1 {
			sub.fn(snapshot)
			continue
		}
		sub.fn(calendar.CloneAll(snapshot))
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	store     *Store
	id        uint64
	fn        Observer
	cancelled atomic.Bool
}

// Cancel stops further notifications. It is safe to call more than once.
func (sub *Subscription) Cancel() {
	if sub == nil || sub.store == nil {
		return
	}
	if sub.cancelled.Swap(true) {
		return
	}
	sub.store.unsubscribe(sub.id)
}
