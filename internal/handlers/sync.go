package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleda/internal/config"
	"fleda/internal/syncer"
)

// SyncRunner performs one calendar sync.
type SyncRunner interface {
	Sync(ctx context.Context, cfg config.SyncConfig) (*syncer.Result, error)
}

// SyncConfigLoader reads the sync configuration afresh for every run.
type SyncConfigLoader func() (config.SyncConfig, error)

// RegisterSyncRoutes registers the sync trigger.
//
// GET|POST /api/integrations/google-calendar/sync
// - Caller must be authorized by the group's middleware
// - Configuration is reloaded on every call
// - Runs are not serialized; concurrent triggers produce identical writes
func RegisterSyncRoutes(r gin.IRoutes, logger *slog.Logger, load SyncConfigLoader, runner SyncRunner) {
	handler := func(c *gin.Context) {
		cfg, err := load()
		if err != nil {
			logger.Error("Invalid sync configuration", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}

		res, err := runner.Sync(c.Request.Context(), cfg)
		if err != nil {
			logger.Error("Google Calendar sync failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}

		calendars := res.Calendars
		if calendars == nil {
			calendars = []syncer.CalendarSummary{}
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"calendars": calendars,
			"imported":  res.Imported,
			"mutations": res.Mutations,
			"window":    res.Window,
		})
	}

	r.GET("/api/integrations/google-calendar/sync", handler)
	r.POST("/api/integrations/google-calendar/sync", handler)
}
