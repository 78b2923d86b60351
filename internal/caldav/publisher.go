package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"fleda/internal/config"
	"fleda/internal/models"
)

// basicAuthTransport adds Basic Auth and a user agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "fleda/1.0")
	return t.Transport.RoundTrip(req)
}

// Publisher mirrors the program into one calendar on a CalDAV server.
type Publisher struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	location     *time.Location
	calendar     *caldav.Calendar
	now          func() time.Time
}

// NewPublisher connects to cfg.Endpoint and locates the calendar named
// cfg.CalendarName. transport may be nil.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg config.CalDAV, loc *time.Location, transport http.RoundTripper) (*Publisher, error) {
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	p := &Publisher{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		location:     loc,
		now:          time.Now,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", cfg.CalendarName)
	cal, err := p.findCalendar(ctx, cfg.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.CalendarName, err)
	}
	p.calendar = cal
	logger.Info("Found CalDAV calendar", "name", cal.Name, "description", cal.Description, "path", cal.Path)

	return p, nil
}

// Publish writes one calendar object per event, replacing earlier versions.
// Failures are logged and returned together once every event was tried.
func (p *Publisher) Publish(ctx context.Context, events []models.CalendarEvent) (int, error) {
	var (
		errs      []error
		published int
	)
	p.logger.Info("Publishing program", "calendar", p.calendar.Name, "events", len(events))
	for _, ev := range events {
		if err := p.publishEvent(ctx, ev); err != nil {
			p.logger.Error("Failed to publish event", "eventID", ev.ID, "title", ev.Title, "error", err)
			errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
			continue
		}
		published++
	}
	return published, errors.Join(errs...)
}

func (p *Publisher) publishEvent(ctx context.Context, ev models.CalendarEvent) error {
	vevent, err := toICal(ev, p.location, p.now())
	if err != nil {
		return err
	}
	cal := newCalendar()
	cal.Children = append(cal.Children, vevent)

	objectPath := path.Join(p.calendar.Path, EventUID(ev.ID)+".ics")
	p.logger.Debug("Publishing event", "title", ev.Title, "path", objectPath)

	writer, err := p.webdavClient.Create(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}
	return nil
}

// findCalendar walks principal -> calendar home set -> calendars and picks
// the event calendar called name.
func (p *Publisher) findCalendar(ctx context.Context, name string) (*caldav.Calendar, error) {
	principalPath, err := p.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := p.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := p.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}
	p.logger.Debug("Discovered CalDAV calendars", "homeSet", homeSetPath, "count", len(calendars))

	return selectCalendar(calendars, name)
}

// selectCalendar matches name case-insensitively against the display names.
// Collections that declare a component set without VEVENT (task lists,
// journals) cannot hold the program and are skipped.
func selectCalendar(calendars []caldav.Calendar, name string) (*caldav.Calendar, error) {
	want := strings.TrimSpace(name)
	var skipped bool
	for i := range calendars {
		cal := &calendars[i]
		if !strings.EqualFold(strings.TrimSpace(cal.Name), want) {
			continue
		}
		if len(cal.SupportedComponentSet) > 0 && !slices.Contains(cal.SupportedComponentSet, ical.CompEvent) {
			skipped = true
			continue
		}
		return cal, nil
	}
	if skipped {
		return nil, fmt.Errorf("calendar '%s' does not accept events", name)
	}
	return nil, fmt.Errorf("no calendar found with name '%s'", name)
}
