package syncer

import (
	"time"

	"fleda/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// ProgramDateTime derives the program date and local 24-hour time of an event.
// A date-only start is used verbatim and yields an empty time. A date-time
// start is converted to loc. ok is false when no program date can be derived.
func ProgramDateTime(start models.EventTime, loc *time.Location) (date, clock string, ok bool) {
	if start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, start.DateTime); err == nil {
			local := t.In(loc)
			date = local.Format(dateLayout)
			clock = local.Format(clockLayout)
		}
	}
	if start.Date != "" {
		date = start.Date
	}
	return date, clock, date != ""
}
