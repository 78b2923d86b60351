package syncer

import (
	"strings"
	"time"

	"fleda/internal/config"
	"fleda/internal/models"
	"fleda/internal/sanity"
)

const (
	eventType    = "event"
	untitledName = "Untitled event"
)

// keepEvent reports whether ev carries enough data to be rendered.
func keepEvent(ev *models.GoogleEvent) bool {
	return ev != nil && ev.ID != "" && (ev.Summary != "" || ev.Start.Date != "" || ev.Start.DateTime != "")
}

// eventMutations builds the upsert for one event: create the draft with a
// baseline if it is missing, then patch every field the sync owns. confirmed
// is never overwritten, only backfilled through setIfMissing.
// It returns nil when the event has no usable program date.
func eventMutations(src config.CalendarSource, ev *models.GoogleEvent, loc *time.Location, syncedAt string) []sanity.Mutation {
	programDate, programTime, ok := ProgramDateTime(ev.Start, loc)
	if !ok {
		return nil
	}

	title := strings.TrimSpace(ev.Summary)
	if title == "" {
		title = untitledName
	}
	venue, needsReview := resolveVenue(src, ev)
	draftID := DraftID(DocumentID(src.ID, ev.ID))
	slug := Slugify(title + "-" + programDate)

	set := map[string]any{
		"title":            title,
		"slug":             sanity.Slug(slug),
		"venue":            venue,
		"venueNeedsReview": needsReview,
		"programDate":      programDate,
		"programTime":      programTime,
		"googleEventId":    ev.ID,
		"googleCalendarId": src.ID,
		"source":           models.SourceGoogle,
		"lastSyncedAt":     syncedAt,
	}
	setIfPresent(set, "startDateTime", ev.Start.DateTime)
	setIfPresent(set, "endDateTime", ev.End.DateTime)
	setIfPresent(set, "googleHtmlLink", ev.HTMLLink)
	setIfPresent(set, "googleStatus", ev.Status)

	return []sanity.Mutation{
		sanity.CreateIfNotExists(sanity.Document{
			"_id":              draftID,
			"_type":            eventType,
			"title":            title,
			"slug":             sanity.Slug(slug),
			"venue":            venue,
			"programDate":      programDate,
			"programTime":      programTime,
			"googleEventId":    ev.ID,
			"googleCalendarId": src.ID,
			"source":           models.SourceGoogle,
			"confirmed":        false,
			"lastSyncedAt":     syncedAt,
		}),
		sanity.PatchDocument(sanity.Patch{
			ID:  draftID,
			Set: set,
			SetIfMissing: map[string]any{
				"confirmed": false,
				"source":    models.SourceGoogle,
			},
		}),
	}
}

func setIfPresent(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
