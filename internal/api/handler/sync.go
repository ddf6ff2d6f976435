package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kaito/photomirror/internal/domain"
	"github.com/kaito/photomirror/internal/repository"
	"github.com/kaito/photomirror/internal/service"
)

// SyncService is the engine surface the HTTP layer depends on.
// Satisfied by *service.Engine.
type SyncService interface {
	Trigger(ctx context.Context) (uint, error)
	RequestCancel(ctx context.Context, runID uint) error
	GetRun(ctx context.Context, runID uint) (*domain.SyncRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.SyncRun, error)
	GetRunLog(ctx context.Context, runID uint, limit int) ([]domain.AuditLogEntry, error)
	ListLedger(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
	LedgerStats(ctx context.Context) (map[domain.LedgerStatus]int64, error)
}

// SyncHandler handles sync run operations.
type SyncHandler struct {
	engine   SyncService
	settings *repository.SettingsRepository
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(engine SyncService, settings *repository.SettingsRepository) *SyncHandler {
	return &SyncHandler{engine: engine, settings: settings}
}

// TriggerSync starts a new sync run. Returns 409 when a run is active.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	runID, err := h.engine.Trigger(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunActive) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  runID,
		"message": "sync started",
	})
}

// CancelRun requests cooperative cancellation of a run. Acknowledges
// even when the run already finished; 404 only for unknown ids.
func (h *SyncHandler) CancelRun(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	if err := h.engine.RequestCancel(c.Request.Context(), runID); err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancellation requested"})
}

// ListRuns returns recent runs, newest first.
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := parseLimit(c, 10)
	runs, err := h.engine.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one run with counters, timestamps, and log excerpt.
func (h *SyncHandler) GetRun(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.engine.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunLog returns a run's ordered audit trail.
func (h *SyncHandler) GetRunLog(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	limit := parseLimit(c, 0)
	entries, err := h.engine.GetRunLog(c.Request.Context(), runID, limit)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ListItems returns ledger entries, most recently synced first.
func (h *SyncHandler) ListItems(c *gin.Context) {
	limit := parseLimit(c, 100)
	items, err := h.engine.ListLedger(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Status returns current sync settings, the last run, and ledger stats.
func (h *SyncHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	settings, err := h.settings.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	runs, err := h.engine.ListRuns(ctx, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var lastRun *domain.SyncRun
	if len(runs) > 0 {
		lastRun = &runs[0]
	}

	stats, err := h.engine.LedgerStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var total int64
	for _, n := range stats {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"sync_enabled":          settings.SyncEnabled,
		"sync_interval_minutes": settings.SyncIntervalMinutes,
		"last_run":              lastRun,
		"total_items":           total,
		"synced_items":          stats[domain.LedgerStatusOK],
		"failed_items":          stats[domain.LedgerStatusFailed],
		"orphaned_items":        stats[domain.LedgerStatusOrphaned],
	})
}

func parseRunID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return 0, false
	}
	return uint(id), true
}

func parseLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return def
	}
	return limit
}
