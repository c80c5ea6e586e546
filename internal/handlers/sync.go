package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"haito-mikke/internal/models"
	"haito-mikke/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxReportedErrors = 10

// StockSyncer runs a full synchronization
type StockSyncer interface {
	SyncAllStocks(ctx context.Context, trigger string) (models.SyncResult, error)
}

// SchedulerStatusProvider reports the cron state
type SchedulerStatusProvider interface {
	Status() services.SchedulerStatus
}

// LatestRunReader loads the last recorded sync run
type LatestRunReader interface {
	LatestSyncRun(ctx context.Context) (*models.SyncResult, error)
}

type SyncHandlerConfig struct {
	CronSecret string
	Production bool
	Timeout    time.Duration
}

// SyncHandler serves the sync trigger and its status
type SyncHandler struct {
	syncer    StockSyncer
	scheduler SchedulerStatusProvider
	runs      LatestRunReader
	cfg       SyncHandlerConfig
	log       *zap.Logger
}

// NewSyncHandler wires the handler; scheduler and runs may be nil
func NewSyncHandler(syncer StockSyncer, scheduler SchedulerStatusProvider, runs LatestRunReader, cfg SyncHandlerConfig, log *zap.Logger) *SyncHandler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &SyncHandler{
		syncer:    syncer,
		scheduler: scheduler,
		runs:      runs,
		cfg:       cfg,
		log:       log,
	}
}

func (h *SyncHandler) authorize(c *gin.Context) error {
	if h.cfg.Production && h.cfg.CronSecret == "" {
		return Internal("CRON_SECRET is not configured")
	}
	if h.cfg.CronSecret != "" && c.GetHeader("Authorization") != "Bearer "+h.cfg.CronSecret {
		return Unauthorized("Invalid authorization")
	}
	return nil
}

// TriggerSync handles POST /api/sync
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	if err := h.authorize(c); err != nil {
		abortWithError(c, err)
		return
	}

	// the run continues if the client disconnects
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.cfg.Timeout)
	defer cancel()

	result, err := h.syncer.SyncAllStocks(ctx, models.TriggerManual)
	if errors.Is(err, services.ErrSyncInProgress) {
		abortWithError(c, Conflict("Sync already in progress"))
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"data": gin.H{
			"runId":        result.RunID,
			"syncedCount":  result.SyncedCount,
			"failedCount":  result.FailedCount,
			"skippedCount": result.SkippedCount,
			"errors":       result.FirstErrors(maxReportedErrors),
		},
	})
}

// SyncUsage handles GET /api/sync
func (h *SyncHandler) SyncUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "Use POST to sync stock data",
		"endpoint": "/api/sync",
		"method":   "POST",
	})
}

// SyncStatus handles GET /api/sync/status
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	response := gin.H{
		"scheduler": nil,
		"lastRun":   nil,
	}

	if h.scheduler != nil {
		status := h.scheduler.Status()
		response["scheduler"] = status
		if status.LastRun != nil {
			response["lastRun"] = status.LastRun
		}
	}

	if response["lastRun"] == nil && h.runs != nil {
		run, err := h.runs.LatestSyncRun(c.Request.Context())
		if err != nil {
			h.log.Warn("failed to load latest sync run", zap.Error(err))
		} else if run != nil {
			response["lastRun"] = run
		}
	}

	c.JSON(http.StatusOK, response)
}
