package models

import "encoding/json"

// Venue is one of the fixed places (or sub-brands) an event can belong to.
type Venue string

const (
	VenueFleda   Venue = "fleda"
	VenueFraktal Venue = "fraktal"
	VenueBar     Venue = "bar"
	VenueGalerie Venue = "galerie"
)

// Venues lists every known venue in display order.
var Venues = []Venue{VenueFleda, VenueFraktal, VenueBar, VenueGalerie}

// ParseVenue reports whether s names a known venue.
func ParseVenue(s string) (Venue, bool) {
	switch v := Venue(s); v {
	case VenueFleda, VenueFraktal, VenueBar, VenueGalerie:
		return v, true
	}
	return "", false
}

// Label returns the public display name of the venue.
func (v Venue) Label() string {
	switch v {
	case VenueFleda:
		return "Fléda"
	case VenueFraktal:
		return "Fraktal"
	case VenueBar:
		return "Spektrum bar"
	case VenueGalerie:
		return "Spektrum galerie"
	}
	return string(v)
}

// Source records where a CMS event document came from.
type Source string

const (
	SourceGoogle Source = "google"
	SourceManual Source = "manual"
)

// EventTime is either a date-only value (all-day events) or a date-time with offset.
type EventTime struct {
	Date     string // YYYY-MM-DD, set for all-day events
	DateTime string // RFC 3339, set for timed events
	TimeZone string
}

// GoogleEvent is an event as read from Google Calendar.
// It is never stored as-is; the sync job derives a CMS patch from it.
type GoogleEvent struct {
	ID          string
	Summary     string
	Description string
	Location    string
	HTMLLink    string
	Status      string
	Start       EventTime
	End         EventTime
}

// CalendarEvent is a confirmed program entry ready for rendering.
type CalendarEvent struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Date  string `json:"date"` // YYYY-MM-DD
	Time  string `json:"time"` // HH:mm, empty for all-day events
	Title string `json:"title"`
	Venue Venue  `json:"venue"`
}

// ProgramEventDetail is everything the event detail page shows.
type ProgramEventDetail struct {
	CalendarEvent

	StartDateTime      string          `json:"startDateTime,omitempty"`
	EndDateTime        string          `json:"endDateTime,omitempty"`
	Description        json.RawMessage `json:"description,omitempty"` // portable text blocks
	FacebookEventLink  string          `json:"facebookEventLink,omitempty"`
	GooutIframeURL     string          `json:"gooutIframeUrl,omitempty"`
	SmsticketIframeURL string          `json:"smsticketIframeUrl,omitempty"`
	YoutubeEmbedURL    string          `json:"youtubeEmbedUrl,omitempty"`
	SpotifyEmbedURL    string          `json:"spotifyEmbedUrl,omitempty"`
	GoogleHTMLLink     string          `json:"googleHtmlLink,omitempty"`
}
