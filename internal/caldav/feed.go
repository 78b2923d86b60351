package caldav

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"fleda/internal/models"
)

const productID = "-//fleda//program//CS"

// EventUID derives a stable iCalendar UID from a document id.
func EventUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("fleda:event:"+id)).String()
}

// BuildCalendar renders the program as one VCALENDAR with a VEVENT per event.
// Date and time are interpreted in loc. Events whose date cannot be parsed
// are left out.
func BuildCalendar(events []models.CalendarEvent, loc *time.Location, now time.Time) *ical.Calendar {
	cal := newCalendar()
	for _, ev := range events {
		vevent, err := toICal(ev, loc, now)
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, vevent)
	}
	return cal
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", "Fléda program")
	return cal
}

// toICal converts a program entry to a VEVENT. All-day entries get a DATE
// start; timed entries get a UTC DATE-TIME start.
func toICal(ev models.CalendarEvent, loc *time.Location, now time.Time) (*ical.Component, error) {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, EventUID(ev.ID))
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetText(ical.PropLocation, ev.Venue.Label())
	ve.Props.SetText(ical.PropCategories, string(ev.Venue))

	if ev.Time == "" {
		day, err := time.ParseInLocation("2006-01-02", ev.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid program date %q: %w", ev.Date, err)
		}
		ve.Props.SetDate(ical.PropDateTimeStart, day)
		return ve, nil
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", ev.Date+" "+ev.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid program date/time %q %q: %w", ev.Date, ev.Time, err)
	}
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	return ve, nil
}
