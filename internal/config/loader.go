package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the calendar service.
type Config struct {
	HTTPPort        int
	Location        *time.Location
	WeekStart       time.Weekday
	Seed            bool
	SeedFile        string
	ImportSource    string
	HourHeight      float64
	MinBlockHeight  float64
	DefaultCreator  string
	RateLimitRPS    float64
	RateLimitBurst  int
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every key is optional. Invalid values are collected and reported together
// so that a misconfigured deployment fails once with the full list.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		Location:        time.Local,
		WeekStart:       time.Sunday,
		Seed:            true,
		HourHeight:      60,
		MinBlockHeight:  30,
		DefaultCreator:  "user@example.com",
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := lookup("CALENDAR_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CALENDAR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if tz := lookup("CALENDAR_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "CALENDAR_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if weekStart := lookup("CALENDAR_WEEK_START"); weekStart != "" {
		switch strings.ToLower(weekStart) {
		case "sunday", "sun":
			cfg.WeekStart = time.Sunday
		case "monday", "mon":
			cfg.WeekStart = time.Monday
		default:
			invalid = append(invalid, "CALENDAR_WEEK_START")
		}
	}

	if seedValue := lookup("CALENDAR_SEED"); seedValue != "" {
		seed, err := strconv.ParseBool(seedValue)
		if err != nil {
			invalid = append(invalid, "CALENDAR_SEED")
		} else {
			cfg.Seed = seed
		}
	}

	cfg.SeedFile = lookup("CALENDAR_SEED_FILE")
	cfg.ImportSource = lookup("CALENDAR_IMPORT_SOURCE")

	if value := lookup("CALENDAR_HOUR_HEIGHT"); value != "" {
		height, err := strconv.ParseFloat(value, 64)
		if err != nil || height <= 0 {
			invalid = append(invalid, "CALENDAR_HOUR_HEIGHT")
		} else {
			cfg.HourHeight = height
		}
	}

	if value := lookup("CALENDAR_MIN_BLOCK_HEIGHT"); value != "" {
		height, err := strconv.ParseFloat(value, 64)
		if err != nil || height <= 0 {
			invalid = append(invalid, "CALENDAR_MIN_BLOCK_HEIGHT")
		} else {
			cfg.MinBlockHeight = height
		}
	}

	if creator := lookup("CALENDAR_DEFAULT_CREATOR"); creator != "" {
		if !strings.Contains(creator, "@") {
			invalid = append(invalid, "CALENDAR_DEFAULT_CREATOR")
		} else {
			cfg.DefaultCreator = creator
		}
	}

	if value := lookup("CALENDAR_RATE_LIMIT_RPS"); value != "" {
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps < 0 {
			invalid = append(invalid, "CALENDAR_RATE_LIMIT_RPS")
		} else {
			cfg.RateLimitRPS = rps
		}
	}

	if value := lookup("CALENDAR_RATE_LIMIT_BURST"); value != "" {
		burst, err := strconv.Atoi(value)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "CALENDAR_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if value := lookup("CALENDAR_LOG_LEVEL"); value != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(value)); err != nil {
			invalid = append(invalid, "CALENDAR_LOG_LEVEL")
		}
	}

	if value := lookup("CALENDAR_SHUTDOWN_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "CALENDAR_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
