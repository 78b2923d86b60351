package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"fleda/internal/models"
)

var envRef = regexp.MustCompile(`\$\{?([A-Z0-9_]+)\}?`)

// loadSources resolves calendar sources in order of precedence:
// GOOGLE_CALENDARS_JSON, GOOGLE_CALENDARS_FILE, GOOGLE_CALENDAR_ID.
func loadSources(lookup LookupFunc) ([]CalendarSource, error) {
	if raw := get(lookup, "GOOGLE_CALENDARS_JSON", ""); raw != "" {
		return ParseSourcesJSON(expandEnv(raw, lookup))
	}

	if path := get(lookup, "GOOGLE_CALENDARS_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read GOOGLE_CALENDARS_FILE: %w", err)
		}
		return ParseSourcesYAML([]byte(expandEnv(string(data), lookup)))
	}

	if id := get(lookup, "GOOGLE_CALENDAR_ID", ""); id != "" {
		return []CalendarSource{{ID: id}}, nil
	}

	return nil, ErrNoCalendarSources
}

// ParseSourcesJSON parses a JSON array of {id, venue?, label?} objects.
func ParseSourcesJSON(raw string) ([]CalendarSource, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid GOOGLE_CALENDARS_JSON. Expected JSON array. %w", err)
	}
	items, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid GOOGLE_CALENDARS_JSON. Expected a JSON array")
	}

	sources := sourcesFrom(items)
	if len(sources) == 0 {
		return nil, fmt.Errorf("GOOGLE_CALENDARS_JSON is set but contains no valid calendar IDs")
	}
	return sources, nil
}

// ParseSourcesYAML parses a YAML list with the same shape as the JSON form.
func ParseSourcesYAML(data []byte) ([]CalendarSource, error) {
	var items []any
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid GOOGLE_CALENDARS_FILE. Expected a YAML list: %w", err)
	}

	sources := sourcesFrom(items)
	if len(sources) == 0 {
		return nil, fmt.Errorf("GOOGLE_CALENDARS_FILE contains no valid calendar IDs")
	}
	return sources, nil
}

// sourcesFrom drops non-object entries and entries without an id. Unknown
// venues are discarded rather than mapped to a default.
func sourcesFrom(items []any) []CalendarSource {
	var sources []CalendarSource
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := trimmedString(obj["id"])
		if id == "" {
			continue
		}
		src := CalendarSource{ID: id, Label: trimmedString(obj["label"])}
		if venue, ok := models.ParseVenue(trimmedString(obj["venue"])); ok {
			src.Venue = venue
		}
		sources = append(sources, src)
	}
	return sources
}

func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// expandEnv replaces $VAR and ${VAR} with their values. References to unset
// variables are left untouched.
func expandEnv(input string, lookup LookupFunc) string {
	return envRef.ReplaceAllStringFunc(input, func(match string) string {
		key := envRef.FindStringSubmatch(match)[1]
		if v, ok := lookup(key); ok {
			return v
		}
		return match
	})
}
