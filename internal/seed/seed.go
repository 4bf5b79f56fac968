// Package seed loads fixture appointments into a calendar store.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/appointment-calendar/internal/calendar"
)

//go:embed default.yaml
var defaultFixtures []byte

// File is the on-disk layout of a fixture document.
type File struct {
	Appointments []Fixture `yaml:"appointments"`
}

// Fixture is one appointment as written in YAML. Timestamps are local wall
// clock values such as "2025-01-15T10:00:00".
type Fixture struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Start       string   `yaml:"start"`
	End         string   `yaml:"end"`
	Location    string   `yaml:"location"`
	Color       string   `yaml:"color"`
	AllDay      bool     `yaml:"all_day"`
	Attendees   []string `yaml:"attendees"`
	CreatedBy   string   `yaml:"created_by"`
}

// Adder is satisfied by the appointment store.
type Adder interface {
	Add(appt calendar.Appointment) error
}

// Default returns the built-in demonstration appointments.
func Default(loc *time.Location) ([]calendar.Appointment, error) {
	return Decode(bytes.NewReader(defaultFixtures), loc)
}

// Load reads fixtures from path, or the built-in set when path is empty.
func Load(path string, loc *time.Location) ([]calendar.Appointment, error) {
	if strings.TrimSpace(path) == "" {
		return Default(loc)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, loc)
}

// Decode parses a fixture document.
func Decode(r io.Reader, loc *time.Location) ([]calendar.Appointment, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("seed: decode fixtures: %w", err)
	}

	out := make([]calendar.Appointment, 0, len(doc.Appointments))
	for i, fx := range doc.Appointments {
		appt, err := fx.appointment(loc)
		if err != nil {
			return nil, fmt.Errorf("seed: fixture %d (%q): %w", i, fx.ID, err)
		}
		out = append(out, appt)
	}
	return out, nil
}

func (fx Fixture) appointment(loc *time.Location) (calendar.Appointment, error) {
	if strings.TrimSpace(fx.ID) == "" {
		return calendar.Appointment{}, errors.New("id is required")
	}
	if !calendar.ValidID(fx.ID) {
		return calendar.Appointment{}, errors.New("id must not contain slashes or name a reserved resource")
	}
	if strings.TrimSpace(fx.Title) == "" {
		return calendar.Appointment{}, errors.New("title is required")
	}
	start, err := calendar.ParseWallClock(fx.Start, loc)
	if err != nil {
		return calendar.Appointment{}, fmt.Errorf("start: %w", err)
	}
	end, err := calendar.ParseWallClock(fx.End, loc)
	if err != nil {
		return calendar.Appointment{}, fmt.Errorf("end: %w", err)
	}

	color := fx.Color
	if color == "" {
		color = calendar.DefaultColor
	}
	var attendees []string
	if len(fx.Attendees) > 0 {
		attendees = append(attendees, fx.Attendees...)
	}

	return calendar.Appointment{
		ID:          fx.ID,
		Title:       fx.Title,
		Description: fx.Description,
		Start:       start,
		End:         end,
		Location:    fx.Location,
		Color:       color,
		AllDay:      fx.AllDay,
		Attendees:   attendees,
		CreatedBy:   fx.CreatedBy,
	}, nil
}

// Apply adds appointments to dst in order and stops at the first failure.
func Apply(dst Adder, appointments []calendar.Appointment) error {
	for _, appt := range appointments {
		if err := dst.Add(appt); err != nil {
			return fmt.Errorf("seed: add %q: %w", appt.ID, err)
		}
	}
	return nil
}

// Marshal renders appointments in the fixture format.
func Marshal(appointments []calendar.Appointment) ([]byte, error) {
	doc := File{Appointments: make([]Fixture, 0, len(appointments))}
	for _, appt := range appointments {
		doc.Appointments = append(doc.Appointments, Fixture{
			ID:          appt.ID,
			Title:       appt.Title,
			Description: appt.Description,
			Start:       appt.Start.Format(calendar.WallClockLayout),
			End:         appt.End.Format(calendar.WallClockLayout),
			Location:    appt.Location,
			Color:       appt.Color,
			AllDay:      appt.AllDay,
			Attendees:   appt.Attendees,
			CreatedBy:   appt.CreatedBy,
		})
	}
	return yaml.Marshal(doc)
}
