package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/store"
)

// ServiceFactory assists tests with constructing calendar services backed by
// a fresh store, deterministic identifiers and a controllable clock.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Config      application.ServiceConfig
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with UTC defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("appt"),
		Config: application.ServiceConfig{
			Location:  time.UTC,
			WeekStart: time.Sunday,
			Creator:   "user@example.com",
		},
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("appt")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithServiceConfig overrides the service configuration.
func WithServiceConfig(cfg application.ServiceConfig) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Config = cfg
	}
}

// NewStore returns a store preloaded with appointments. It panics on
// duplicate ids since that indicates a broken test setup.
func NewStore(appointments ...calendar.Appointment) *store.Store {
	s := store.New()
	for _, appt := range appointments {
		if err := s.Add(appt); err != nil {
			panic(err)
		}
	}
	return s
}

// NewCalendarService builds a calendar service over s using the factory defaults.
func (f *ServiceFactory) NewCalendarService(s *store.Store, logger *slog.Logger) *application.CalendarService {
	if s == nil {
		s = store.New()
	}
	return application.NewCalendarServiceWithLogger(
		s,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Config,
		logger,
	)
}
