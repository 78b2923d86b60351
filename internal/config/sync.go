package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleda/internal/models"
)

// ErrNoCalendarSources is returned when neither a source list nor a single
// calendar id is configured.
var ErrNoCalendarSources = errors.New("missing GOOGLE_CALENDAR_ID or GOOGLE_CALENDARS_JSON")

// CalendarSource pairs a Google calendar with an optional fixed venue.
type CalendarSource struct {
	ID    string
	Venue models.Venue // empty when the venue must be inferred per event
	Label string
}

// Window is the time range fetched from the provider on one run.
type Window struct {
	TimeMin time.Time
	TimeMax time.Time
}

// GoogleAuth holds the credentials for one of the two supported auth modes.
type GoogleAuth struct {
	APIKey              string
	ServiceAccountEmail string
	PrivateKey          string
	// TokenURL overrides the Google token endpoint; empty means the default.
	TokenURL string
}

// UsesAPIKey reports whether the static API key mode is configured.
func (a GoogleAuth) UsesAPIKey() bool { return a.APIKey != "" }

// SyncConfig is resolved fresh for every sync invocation.
type SyncConfig struct {
	Sources []CalendarSource
	Window  Window
	Google  GoogleAuth
}

// LoadSync resolves calendar sources, the sync window and Google credentials.
func LoadSync(lookup LookupFunc, now time.Time) (SyncConfig, error) {
	sources, err := loadSources(lookup)
	if err != nil {
		return SyncConfig{}, err
	}

	lookback, err := days(lookup, "GOOGLE_CALENDAR_LOOKBACK_DAYS", defaultLookback)
	if err != nil {
		return SyncConfig{}, err
	}
	future, err := days(lookup, "GOOGLE_CALENDAR_FUTURE_DAYS", defaultFutureDays)
	if err != nil {
		return SyncConfig{}, err
	}

	now = now.UTC()
	return SyncConfig{
		Sources: sources,
		Window: Window{
			TimeMin: now.AddDate(0, 0, -lookback),
			TimeMax: now.AddDate(0, 0, future),
		},
		Google: GoogleAuth{
			APIKey:              get(lookup, "GOOGLE_CALENDAR_API_KEY", ""),
			ServiceAccountEmail: get(lookup, "GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
			PrivateKey:          strings.ReplaceAll(get(lookup, "GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY", ""), `\n`, "\n"),
			TokenURL:            get(lookup, "GOOGLE_TOKEN_URL", ""),
		},
	}, nil
}

func days(lookup LookupFunc, key string, def int) (int, error) {
	raw := get(lookup, key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative number of days", key, raw)
	}
	return n, nil
}
