package program

import (
	"encoding/json"
	"regexp"
	"strings"

	"fleda/internal/models"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// rawEvent is a program record as projected by the queries below. Any field
// may be missing or null.
type rawEvent struct {
	ID    string `json:"_id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Venue string `json:"venue"`

	StartDateTime      string          `json:"startDateTime"`
	EndDateTime        string          `json:"endDateTime"`
	Description        json.RawMessage `json:"description"`
	FacebookEventLink  string          `json:"facebookEventLink"`
	GooutIframeURL     string          `json:"gooutIframeUrl"`
	SmsticketIframeURL string          `json:"smsticketIframeUrl"`
	YoutubeEmbedURL    string          `json:"youtubeEmbedUrl"`
	SpotifyEmbedURL    string          `json:"spotifyEmbedUrl"`
	GoogleHTMLLink     string          `json:"googleHtmlLink"`
}

// normalize validates a record and returns the renderable event. A record
// without a valid date, slug, title or venue is rejected; an unusable time
// becomes empty.
func normalize(raw rawEvent) (models.CalendarEvent, bool) {
	if !dateRe.MatchString(raw.Date) || strings.TrimSpace(raw.Slug) == "" || raw.Title == "" {
		return models.CalendarEvent{}, false
	}
	venue, ok := models.ParseVenue(raw.Venue)
	if !ok {
		return models.CalendarEvent{}, false
	}
	return models.CalendarEvent{
		ID:    raw.ID,
		Slug:  raw.Slug,
		Date:  raw.Date,
		Time:  sanitizeTime(raw.Time),
		Title: raw.Title,
		Venue: venue,
	}, true
}

func normalizeDetail(raw rawEvent) (*models.ProgramEventDetail, bool) {
	ev, ok := normalize(raw)
	if !ok {
		return nil, false
	}
	detail := &models.ProgramEventDetail{
		CalendarEvent:      ev,
		StartDateTime:      raw.StartDateTime,
		EndDateTime:        raw.EndDateTime,
		FacebookEventLink:  raw.FacebookEventLink,
		GooutIframeURL:     raw.GooutIframeURL,
		SmsticketIframeURL: raw.SmsticketIframeURL,
		YoutubeEmbedURL:    raw.YoutubeEmbedURL,
		SpotifyEmbedURL:    raw.SpotifyEmbedURL,
		GoogleHTMLLink:     raw.GoogleHTMLLink,
	}
	if len(raw.Description) > 0 && string(raw.Description) != "null" {
		detail.Description = raw.Description
	}
	return detail, true
}

func sanitizeTime(s string) string {
	if timeRe.MatchString(s) {
		return s
	}
	return ""
}
