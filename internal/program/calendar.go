package program

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"fleda/internal/models"
)

var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ValidMonth reports whether s is a YYYY-MM key.
func ValidMonth(s string) bool {
	return monthRe.MatchString(s)
}

// Months returns the sorted distinct months that have events. When there are
// none it returns just the current month.
func Months(events []models.CalendarEvent, now time.Time) []string {
	var months []string
	for _, ev := range events {
		if len(ev.Date) < 7 {
			continue
		}
		key := ev.Date[:7]
		if ValidMonth(key) && !slices.Contains(months, key) {
			months = append(months, key)
		}
	}
	if len(months) == 0 {
		return []string{MonthKey(now)}
	}
	slices.Sort(months)
	return months
}

// DefaultMonth picks the current month when it has events, otherwise the
// first month in the list.
func DefaultMonth(months []string, now time.Time) string {
	current := MonthKey(now)
	if len(months) == 0 || slices.Contains(months, current) {
		return current
	}
	return months[0]
}

// Filter keeps the events of month and, when venue is non-empty, of that
// venue only. The result is ordered by date then time.
func Filter(events []models.CalendarEvent, month string, venue models.Venue) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0)
	for _, ev := range events {
		if !strings.HasPrefix(ev.Date, month) {
			continue
		}
		if venue != "" && ev.Venue != venue {
			continue
		}
		out = append(out, ev)
	}
	slices.SortStableFunc(out, func(a, b models.CalendarEvent) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Time, b.Time)
	})
	return out
}
