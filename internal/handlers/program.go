package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fleda/internal/models"
	"fleda/internal/program"
)

// ProgramReader reads the confirmed public program.
type ProgramReader interface {
	CalendarEvents(ctx context.Context) []models.CalendarEvent
	EventBySlug(ctx context.Context, slug string) *models.ProgramEventDetail
}

// RegisterProgramRoutes registers the read-only program API.
//
// GET /api/program?month=YYYY-MM&venue=key
// GET /api/program/:slug
func RegisterProgramRoutes(r gin.IRoutes, reader ProgramReader, now func() time.Time) {
	r.GET("/api/program", func(c *gin.Context) {
		var venue models.Venue
		if raw := strings.TrimSpace(c.Query("venue")); raw != "" && raw != "all" {
			v, ok := models.ParseVenue(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venue"})
				return
			}
			venue = v
		}

		events := reader.CalendarEvents(c.Request.Context())
		months := program.Months(events, now())

		month := strings.TrimSpace(c.Query("month"))
		if !program.ValidMonth(month) {
			month = program.DefaultMonth(months, now())
		}

		c.JSON(http.StatusOK, gin.H{
			"months": months,
			"month":  month,
			"events": program.Filter(events, month, venue),
		})
	})

	r.GET("/api/program/:slug", func(c *gin.Context) {
		detail := reader.EventBySlug(c.Request.Context(), c.Param("slug"))
		if detail == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, detail)
	})
}
