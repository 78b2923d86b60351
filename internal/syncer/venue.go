package syncer

import (
	"strings"

	"fleda/internal/config"
	"fleda/internal/models"
)

// fallbackVenue is used when no rule matches; such events need review.
const fallbackVenue = models.VenueFleda

type venueRule struct {
	venue models.Venue
	match func(text string) bool
}

// venueRules are evaluated in order and the first match wins. The order is a
// product decision: an event mentioning both Fraktal and the bar belongs to
// Fraktal.
var venueRules = []venueRule{
	{models.VenueFraktal, containsAny("fraktal")},
	{models.VenueBar, func(s string) bool {
		return containsAny("spektrum bar", "spectrum bar")(s) ||
			(strings.Contains(s, "spektrum") && strings.Contains(s, "bar"))
	}},
	{models.VenueGalerie, func(s string) bool {
		return containsAny("spektrum galerie", "spektrum gallery")(s) ||
			(strings.Contains(s, "spektrum") && containsAny("galerie", "gallery")(s))
	}},
	{models.VenueFleda, containsAny("fleda", "fleda club")},
}

func containsAny(needles ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}
}

// InferVenue maps free text to a venue. needsReview is true when no rule
// matched and the fallback venue was used.
func InferVenue(text string) (venue models.Venue, needsReview bool) {
	normalized := fold(text)
	for _, rule := range venueRules {
		if rule.match(normalized) {
			return rule.venue, false
		}
	}
	return fallbackVenue, true
}

// resolveVenue prefers the venue fixed by the calendar source and falls back
// to inference over the event's summary, location and description.
func resolveVenue(src config.CalendarSource, ev *models.GoogleEvent) (models.Venue, bool) {
	if src.Venue != "" {
		return src.Venue, false
	}
	return InferVenue(ev.Summary + " " + ev.Location + " " + ev.Description)
}
