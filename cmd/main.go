package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"fleda/internal/caldav"
	"fleda/internal/config"
	"fleda/internal/google"
	"fleda/internal/httpserver"
	"fleda/internal/models"
	"fleda/internal/program"
	"fleda/internal/sanity"
	"fleda/internal/scheduler"
	"fleda/internal/syncer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "fleda",
		Usage: "Import Google Calendar events into the Fléda program and serve it.",
		Commands: []*cli.Command{
			serveCommand(),
			syncCommand(),
			authCommand(),
			eventsCommand(),
			publishCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	cms    *sanity.Client
}

func loadApp() (*app, error) {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)
	return &app{
		cfg:    cfg,
		logger: logger,
		cms:    sanity.NewClient(logger, cfg.Sanity, nil),
	}, nil
}

func (a *app) newSyncer(dryRun bool) *syncer.Syncer {
	return syncer.NewSyncer(a.logger, a.googleSource, a.cms, a.cfg.Location, syncer.WithDryRun(dryRun))
}

func (a *app) googleSource(ctx context.Context, auth config.GoogleAuth) (syncer.EventSource, error) {
	client, err := google.NewClient(ctx, a.logger, auth)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func loadSync() (config.SyncConfig, error) {
	return config.LoadSync(os.LookupEnv, time.Now())
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the program API and the sync trigger.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Address to listen on. Overrides LISTEN_ADDR."},
			&cli.StringFlag{Name: "schedule", Usage: "Cron spec for in-process syncing, e.g. '@every 15m'. Overrides SYNC_SCHEDULE."},
		},
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if c.IsSet("listen") {
				a.cfg.Listen = c.String("listen")
			}
			if c.IsSet("schedule") {
				a.cfg.Schedule = c.String("schedule")
			}
			if a.cfg.SyncSecret == "" {
				a.logger.Warn("GOOGLE_CALENDAR_SYNC_SECRET is not set; the sync endpoint will reject every request.")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := a.newSyncer(false)

			if a.cfg.Schedule != "" {
				sched, err := scheduler.New(ctx, a.logger, a.cfg.Schedule, func(ctx context.Context) error {
					cfg, err := loadSync()
					if err != nil {
						return err
					}
					_, err = s.Sync(ctx, cfg)
					return err
				})
				if err != nil {
					return err
				}
				a.logger.Info("Starting scheduler.", "schedule", a.cfg.Schedule)
				sched.Start()
				defer sched.Stop()
			}

			router := httpserver.NewRouter(httpserver.Deps{
				Logger:   a.logger,
				Config:   a.cfg,
				LoadSync: loadSync,
				Syncer:   s,
				Program:  program.NewService(a.logger, a.cms, a.cfg.Sanity),
			})
			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Listening.", "addr", a.cfg.Listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run one Google Calendar sync and print the result as JSON.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Build mutations without writing them."},
		},
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				a.logger.Info("Performing a dry run. No changes will be made.")
			}

			cfg, err := loadSync()
			if err != nil {
				return err
			}
			res, err := a.newSyncer(c.Bool("dry-run")).Sync(c.Context, cfg)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Verify Google credentials against every configured calendar.",
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			cfg, err := loadSync()
			if err != nil {
				return err
			}

			client, err := google.NewClient(c.Context, a.logger, cfg.Google)
			if err != nil {
				return fmt.Errorf("failed to authenticate with Google: %w", err)
			}

			var failed int
			for _, src := range cfg.Sources {
				info, err := client.DescribeCalendar(c.Context, src.ID)
				if err != nil {
					failed++
					a.logger.Error("Calendar not readable", "calendarID", src.ID, "error", err)
					continue
				}
				fmt.Printf("%s\t%s\t%s\n", info.ID, info.Summary, info.TimeZone)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d calendars are not readable", failed, len(cfg.Sources))
			}
			a.logger.Info("Google credentials verified.", "calendars", len(cfg.Sources))
			return nil
		},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Print the confirmed program.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "Month to show as YYYY-MM. Defaults to the current month."},
			&cli.StringFlag{Name: "venue", Usage: "Only show events of this venue (fleda, fraktal, bar, galerie)."},
		},
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			var venue models.Venue
			if raw := c.String("venue"); raw != "" {
				v, ok := models.ParseVenue(raw)
				if !ok {
					return fmt.Errorf("unknown venue %q", raw)
				}
				venue = v
			}

			events := program.NewService(a.logger, a.cms, a.cfg.Sanity).CalendarEvents(c.Context)
			now := time.Now().In(a.cfg.Location)
			month := c.String("month")
			if month == "" {
				month = program.DefaultMonth(program.Months(events, now), now)
			} else if !program.ValidMonth(month) {
				return fmt.Errorf("invalid month %q, expected YYYY-MM", month)
			}

			for _, ev := range program.Filter(events, month, venue) {
				clock := ev.Time
				if clock == "" {
					clock = "--:--"
				}
				fmt.Printf("%s %s  %-16s %s\n", ev.Date, clock, ev.Venue.Label(), ev.Title)
			}
			return nil
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Mirror the confirmed program into a CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Only list what would be published."},
		},
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !a.cfg.CalDAV.Enabled() {
				return errors.New("CALDAV_USERNAME, CALDAV_PASSWORD and CALDAV_CALENDAR_NAME must be set")
			}

			events := program.NewService(a.logger, a.cms, a.cfg.Sanity).CalendarEvents(c.Context)
			if c.Bool("dry-run") {
				for _, ev := range events {
					a.logger.Info("[DRY RUN] Would publish event", "title", ev.Title, "date", ev.Date, "uid", caldav.EventUID(ev.ID))
				}
				return nil
			}

			pub, err := caldav.NewPublisher(c.Context, a.logger, a.cfg.CalDAV, a.cfg.Location, nil)
			if err != nil {
				return err
			}
			published, err := pub.Publish(c.Context, events)
			a.logger.Info("Publish finished.", "published", published, "total", len(events))
			return err
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
