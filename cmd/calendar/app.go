package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/appointment-calendar/internal/application"
	"github.com/example/appointment-calendar/internal/calendar"
	"github.com/example/appointment-calendar/internal/config"
	"github.com/example/appointment-calendar/internal/ics"
	"github.com/example/appointment-calendar/internal/seed"
	"github.com/example/appointment-calendar/internal/store"
)

// importTimeout bounds fetching CALENDAR_IMPORT_SOURCE at startup.
const importTimeout = 30 * time.Second

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	service *application.CalendarService
}

// bootstrap builds the store and service, then loads seed fixtures and the
// optional iCalendar import source.
func bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (*app, error) {
	if now == nil {
		now = time.Now
	}

	appointments := store.New(store.WithLogger(logger))
	service := application.NewCalendarServiceWithLogger(
		appointments,
		uuid.NewString,
		now,
		application.ServiceConfig{
			Location:        cfg.Location,
			WeekStart:       cfg.WeekStart,
			Creator:         cfg.DefaultCreator,
			UnitSize:        cfg.HourHeight,
			MinimumUnitSize: cfg.MinBlockHeight,
		},
		logger,
	)

	a := &app{cfg: cfg, logger: logger, store: appointments, service: service}

	fixtures, err := a.loadFixtures()
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(appointments, fixtures); err != nil {
		return nil, fmt.Errorf("apply seed fixtures: %w", err)
	}
	if len(fixtures) > 0 {
		logger.Info("seed fixtures loaded", "count", len(fixtures), "file", cfg.SeedFile)
	}

	if cfg.ImportSource != "" {
		if err := a.importSource(ctx, cfg.ImportSource); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *app) loadFixtures() ([]calendar.Appointment, error) {
	switch {
	case a.cfg.SeedFile != "":
		fixtures, err := seed.Load(a.cfg.SeedFile, a.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("load seed file: %w", err)
		}
		return fixtures, nil
	case a.cfg.Seed:
		fixtures, err := seed.Default(a.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("load default fixtures: %w", err)
		}
		return fixtures, nil
	default:
		return nil, nil
	}
}

func (a *app) importSource(ctx context.Context, source string) error {
	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	reader, err := ics.Open(ctx, &http.Client{Timeout: importTimeout}, source)
	if err != nil {
		return fmt.Errorf("open import source: %w", err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			a.logger.Warn("failed to close import source", "error", cerr)
		}
	}()

	result, err := a.service.ImportICS(ctx, reader)
	if err != nil {
		return fmt.Errorf("import calendar: %w", err)
	}
	for _, skipped := range result.Skipped {
		a.logger.Warn("calendar event skipped", "uid", skipped.UID, "reason", skipped.Reason)
	}
	return nil
}
