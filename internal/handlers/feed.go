package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gin-gonic/gin"

	"fleda/internal/caldav"
)

// RegisterFeedRoutes registers the iCalendar subscription feed.
//
// GET /program.ics
func RegisterFeedRoutes(r gin.IRoutes, logger *slog.Logger, reader ProgramReader, loc *time.Location, now func() time.Time) {
	r.GET("/program.ics", func(c *gin.Context) {
		cal := caldav.BuildCalendar(reader.CalendarEvents(c.Request.Context()), loc, now())

		var buf bytes.Buffer
		if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
			logger.Error("Failed to encode program feed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render calendar"})
			return
		}
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
	})
}
