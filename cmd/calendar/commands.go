package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/appointment-calendar/internal/config"
	"github.com/example/appointment-calendar/internal/grid"
	httptransport "github.com/example/appointment-calendar/internal/http"
)

type cli struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	envFile string
	app     *app
}

func newRootCommand(stdout, stderr io.Writer, now func() time.Time) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, now: now}

	rootCmd := &cobra.Command{
		Use:           "calendar",
		Short:         "An in-memory appointment calendar",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading CALENDAR_* variables")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides CALENDAR_HTTP_PORT")

	var selected string
	monthCmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Print the month grid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) > 0 {
				value = args[0]
			}
			return c.month(cmd.Context(), value, selected)
		},
	}
	monthCmd.Flags().StringVar(&selected, "selected", "", "highlight this date (YYYY-MM-DD)")

	dayCmd := &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Print the hourly schedule of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) > 0 {
				value = args[0]
			}
			return c.day(cmd.Context(), value)
		},
	}

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every appointment as iCalendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.export(cmd.Context(), output)
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(monthCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(exportCmd)

	return rootCmd
}

func (c *cli) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(c.stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	a, err := bootstrap(ctx, cfg, logger, c.now)
	if err != nil {
		logger.Error("failed to start calendar", "error", err)
		return err
	}
	c.app = a
	return nil
}

func (c *cli) serve(ctx context.Context, addr string) error {
	a := c.app
	if addr == "" {
		addr = a.cfg.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := httptransport.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
	go limiter.Run(ctx, time.Minute)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Appointments: httptransport.NewAppointmentHandler(a.service, a.logger),
		Calendar:     httptransport.NewCalendarHandler(a.service, a.logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.RateLimit(limiter, a.logger),
		},
	})

	// No WriteTimeout: the change stream holds its response open.
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("calendar API listening", "addr", server.Addr, "appointments", a.store.Len())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("server encountered error", "error", err)
		return err
	}
	a.logger.Info("calendar API stopped")
	return nil
}

func (c *cli) month(ctx context.Context, value, selectedValue string) error {
	a := c.app
	loc := a.service.Location()

	var selected time.Time
	if selectedValue != "" {
		t, err := time.ParseInLocation("2006-01-02", selectedValue, loc)
		if err != nil {
			return fmt.Errorf("invalid --selected %q: expected YYYY-MM-DD", selectedValue)
		}
		selected = t
	}

	var month grid.Month
	switch {
	case value != "":
		m, err := grid.ParseMonth(value)
		if err != nil {
			return fmt.Errorf("invalid month %q: expected YYYY-MM", value)
		}
		month = m
	case !selected.IsZero():
		month = grid.MonthOf(selected)
	default:
		month = grid.MonthOf(a.service.Today())
	}

	view, err := a.service.MonthView(ctx, month, selected)
	if err != nil {
		return err
	}
	return renderMonth(c.stdout, view)
}

func (c *cli) day(ctx context.Context, value string) error {
	a := c.app
	date := a.service.Today()
	if value != "" {
		t, err := time.ParseInLocation("2006-01-02", value, a.service.Location())
		if err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
		}
		date = t
	}

	view, err := a.service.DayView(ctx, date)
	if err != nil {
		return err
	}
	return renderDay(c.stdout, view)
}

func (c *cli) export(ctx context.Context, output string) (err error) {
	a := c.app
	if output == "" {
		return a.service.ExportICS(ctx, c.stdout)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return a.service.ExportICS(ctx, f)
}
