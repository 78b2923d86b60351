package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fleda/internal/auth"
	"fleda/internal/config"
	"fleda/internal/handlers"
)

// RequestIDHeader carries the per-request id back to the caller.
const RequestIDHeader = "X-Request-Id"

// Deps are the collaborators the routes need.
type Deps struct {
	Logger   *slog.Logger
	Config   config.Config
	LoadSync handlers.SyncConfigLoader
	Syncer   handlers.SyncRunner
	Program  handlers.ProgramReader
	Now      func() time.Time
}

// NewRouter wires public endpoints and the secret-protected sync trigger.
// Public: /health, /api/program, /api/program/:slug, /program.ics
// Protected: /api/integrations/google-calendar/sync
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if d.Now == nil {
		d.Now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterProgramRoutes(r, d.Program, d.Now)
	handlers.RegisterFeedRoutes(r, d.Logger, d.Program, d.Config.Location, d.Now)

	syncGroup := r.Group("/")
	syncGroup.Use(auth.SyncSecretMiddleware(d.Config.SyncSecret))
	handlers.RegisterSyncRoutes(syncGroup, d.Logger, d.LoadSync, d.Syncer)

	return r
}

// requestLogger tags each request with an id and logs it once it completes.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(RequestIDHeader, id)

		c.Next()

		logger.Info("Request handled",
			"requestId", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
