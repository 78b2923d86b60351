package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"fleda/internal/config"
	"fleda/internal/models"
)

// maxResults is the largest page size the events listing accepts.
const maxResults = 2500

// ErrMissingAuth is returned when neither an API key nor service account
// credentials are configured.
var ErrMissingAuth = errors.New("missing Google auth configuration. Set GOOGLE_CALENDAR_API_KEY or service account env vars")

// CalendarClient provides read access to Google Calendar events.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a Google Calendar client for the configured auth mode.
// In service account mode an access token is minted up front so that
// credential problems fail fast. Extra options are appended last.
func NewClient(ctx context.Context, logger *slog.Logger, auth config.GoogleAuth, opts ...option.ClientOption) (*CalendarClient, error) {
	var authOpt option.ClientOption
	switch {
	case auth.UsesAPIKey():
		logger.Debug("Using Google Calendar API key")
		authOpt = option.WithAPIKey(auth.APIKey)
	case auth.ServiceAccountEmail != "" && auth.PrivateKey != "":
		ts, err := ServiceAccountTokenSource(ctx, auth)
		if err != nil {
			return nil, err
		}
		logger.Debug("Obtained Google service account token", "email", auth.ServiceAccountEmail)
		authOpt = option.WithTokenSource(ts)
	default:
		return nil, ErrMissingAuth
	}

	service, err := calendar.NewService(ctx, append([]option.ClientOption{authOpt}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger}, nil
}

// ServiceAccountTokenSource signs a JWT assertion for the service account
// (read-only calendar scope, one hour validity) and exchanges it for an
// access token. The returned source reuses that token until it expires.
func ServiceAccountTokenSource(ctx context.Context, auth config.GoogleAuth) (oauth2.TokenSource, error) {
	tokenURL := auth.TokenURL
	if tokenURL == "" {
		tokenURL = googleoauth.JWTTokenURL
	}
	conf := &jwt.Config{
		Email:      auth.ServiceAccountEmail,
		PrivateKey: []byte(auth.PrivateKey),
		Scopes:     []string{calendar.CalendarReadonlyScope},
		TokenURL:   tokenURL,
	}

	ts := conf.TokenSource(ctx)
	tok, err := ts.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, fmt.Errorf("failed to obtain Google access token (%d): %s", retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return nil, fmt.Errorf("failed to obtain Google access token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("google token response did not include access_token")
	}
	return oauth2.ReuseTokenSource(tok, ts), nil
}

// ListEvents returns every event of calendarID inside window. Recurring
// events are expanded into single occurrences and deleted events are
// excluded. Pages are fetched one after another.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, window config.Window) ([]*models.GoogleEvent, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "timeMin", window.TimeMin, "timeMax", window.TimeMax)

	var events []*models.GoogleEvent
	pageToken := ""
	pages := 0
	for {
		call := c.service.Events.List(calendarID).
			Context(ctx).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxResults).
			TimeMin(window.TimeMin.UTC().Format(time.RFC3339)).
			TimeMax(window.TimeMax.UTC().Format(time.RFC3339)).
			ShowDeleted(false)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fetchError(calendarID, err)
		}
		pages++
		events = append(events, toInternalEvents(page.Items)...)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	c.logger.Info("Fetched events from Google Calendar", "calendarID", calendarID, "count", len(events), "pages", pages)
	return events, nil
}

// CalendarInfo is the metadata shown by the auth check.
type CalendarInfo struct {
	ID       string
	Summary  string
	TimeZone string
}

// DescribeCalendar reads the metadata of calendarID. It is a cheap way to
// verify that the configured credentials can see the calendar.
func (c *CalendarClient) DescribeCalendar(ctx context.Context, calendarID string) (*CalendarInfo, error) {
	cal, err := c.service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar %s: %w", calendarID, err)
	}
	return &CalendarInfo{ID: cal.Id, Summary: cal.Summary, TimeZone: cal.TimeZone}, nil
}

func fetchError(calendarID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("google calendar events fetch failed for %s (%d): %s", calendarID, apiErr.Code, apiErr.Body)
	}
	return fmt.Errorf("google calendar events fetch failed for %s: %w", calendarID, err)
}

// toInternalEvents converts Google Calendar events to the internal model.
func toInternalEvents(items []*calendar.Event) []*models.GoogleEvent {
	events := make([]*models.GoogleEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, &models.GoogleEvent{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
			HTMLLink:    item.HtmlLink,
			Status:      item.Status,
			Start:       toEventTime(item.Start),
			End:         toEventTime(item.End),
		})
	}
	return events
}

func toEventTime(t *calendar.EventDateTime) models.EventTime {
	if t == nil {
		return models.EventTime{}
	}
	return models.EventTime{Date: t.Date, DateTime: t.DateTime, TimeZone: t.TimeZone}
}
