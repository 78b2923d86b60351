package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultListen     = ":8080"
	defaultLogLevel   = "info"
	defaultTimezone   = "Europe/Prague"
	defaultProjectID  = "rw346rj2"
	defaultDataset    = "production"
	defaultCalDAVURL  = "https://caldav.icloud.com/"
	defaultLookback   = 45
	defaultFutureDays = 400
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Config holds process-wide settings read once at start-up.
type Config struct {
	Listen     string
	LogLevel   string
	SyncSecret string
	// Schedule is a cron spec for in-process syncing. Empty disables it.
	Schedule string
	Location *time.Location
	Sanity   Sanity
	CalDAV   CalDAV
}

// Sanity describes how to reach the CMS dataset.
type Sanity struct {
	ProjectID     string
	Dataset       string
	WriteToken    string
	ReadToken     string
	IncludeDrafts bool
	// APIHost overrides https://{ProjectID}.api.sanity.io when set.
	APIHost string
}

// CalDAV holds credentials for publishing the program to a CalDAV calendar.
type CalDAV struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
}

// Enabled reports whether enough settings exist to publish.
func (c CalDAV) Enabled() bool {
	return c.Username != "" && c.Password != "" && c.CalendarName != ""
}

// Load reads the process configuration from the environment.
func Load(lookup LookupFunc) (Config, error) {
	tzName := get(lookup, "PROGRAM_TIMEZONE", defaultTimezone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("invalid PROGRAM_TIMEZONE %q: %w", tzName, err)
	}

	return Config{
		Listen:     get(lookup, "LISTEN_ADDR", defaultListen),
		LogLevel:   strings.ToLower(get(lookup, "LOG_LEVEL", defaultLogLevel)),
		SyncSecret: get(lookup, "GOOGLE_CALENDAR_SYNC_SECRET", ""),
		Schedule:   get(lookup, "SYNC_SCHEDULE", ""),
		Location:   loc,
		Sanity: Sanity{
			ProjectID:     first(lookup, defaultProjectID, "SANITY_PROJECT_ID", "NEXT_PUBLIC_SANITY_PROJECT_ID"),
			Dataset:       first(lookup, defaultDataset, "SANITY_DATASET", "NEXT_PUBLIC_SANITY_DATASET"),
			WriteToken:    get(lookup, "SANITY_API_WRITE_TOKEN", ""),
			ReadToken:     get(lookup, "SANITY_API_READ_TOKEN", ""),
			IncludeDrafts: get(lookup, "SANITY_INCLUDE_DRAFT_EVENTS", "") == "true",
			APIHost:       get(lookup, "SANITY_API_HOST", ""),
		},
		CalDAV: CalDAV{
			Endpoint:     get(lookup, "CALDAV_URL", defaultCalDAVURL),
			Username:     get(lookup, "CALDAV_USERNAME", ""),
			Password:     get(lookup, "CALDAV_PASSWORD", ""),
			CalendarName: get(lookup, "CALDAV_CALENDAR_NAME", ""),
		},
	}, nil
}

// get returns the trimmed value of key, or def when it is unset or blank.
func get(lookup LookupFunc, key, def string) string {
	if v, ok := lookup(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func first(lookup LookupFunc, def string, keys ...string) string {
	for _, key := range keys {
		if v := get(lookup, key, ""); v != "" {
			return v
		}
	}
	return def
}
