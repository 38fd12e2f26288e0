package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/usecase"
)

// Route paths served by the API.
const (
	PathTrigger = "/api/cron/announcements"
	PathStatus  = "/api/cron/status"
	PathHealth  = "/api/health"
)

// RunController is the part of the runner the handlers need.
type RunController interface {
	Trigger(ctx context.Context) (usecase.RunStatus, error)
	Status() usecase.RunStatus
}

// API holds handler dependencies.
type API struct {
	app    config.AppConfig
	runs   RunController
	now    func() time.Time
	logger *slog.Logger
}

// NewAPI builds the handler set.
func NewAPI(app config.AppConfig, runs RunController, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{app: app, runs: runs, now: time.Now, logger: log}
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/", api.handleIndex)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)
		apiGroup.POST("/cron/announcements", api.handleTrigger)
		apiGroup.GET("/cron/status", api.handleStatus)
	}
}

func (a *API) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": a.app.Name,
		"version": a.app.Version,
		"endpoints": gin.H{
			"health":       PathHealth,
			"cron_trigger": PathTrigger,
			"cron_status":  PathStatus,
		},
	})
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": a.now().UTC().Format(time.RFC3339),
		"service":   a.app.Name,
	})
}

func (a *API) handleTrigger(c *gin.Context) {
	started, err := a.runs.Trigger(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		respondError(c, http.StatusConflict, err)
		return
	case errors.Is(err, usecase.ErrRunnerClosed):
		respondError(c, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		a.logger.Error("trigger run", "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("could not start ingestion run"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "started",
		"message": "Announcement ingestion started in background",
		"job_id":  started.JobID,
	})
}

func (a *API) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.runs.Status())
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
