package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kaito/photomirror/internal/repository"
)

// SettingsHandler exposes the runtime-mutable sync settings.
type SettingsHandler struct {
	settings *repository.SettingsRepository
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings returns the current sync settings.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSettingsRequest is the settings update payload. Selecting a new
// source album resets the cached destination album mapping so the next
// run resolves a fresh container.
type UpdateSettingsRequest struct {
	SourceAlbumID       *string `json:"source_album_id"`
	SourceAlbumName     *string `json:"source_album_name"`
	SyncEnabled         *bool   `json:"sync_enabled"`
	SyncIntervalMinutes *int    `json:"sync_interval_minutes"`
}

// UpdateSettings applies a partial settings update.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SyncIntervalMinutes != nil && *req.SyncIntervalMinutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sync_interval_minutes must not be negative"})
		return
	}

	ctx := c.Request.Context()
	s, err := h.settings.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.SourceAlbumID != nil && *req.SourceAlbumID != s.SourceAlbumID {
		s.SourceAlbumID = *req.SourceAlbumID
		s.DestinationAlbumID = ""
		s.DestinationAlbumName = ""
	}
	if req.SourceAlbumName != nil {
		s.SourceAlbumName = *req.SourceAlbumName
	}
	if req.SyncEnabled != nil {
		s.SyncEnabled = *req.SyncEnabled
	}
	if req.SyncIntervalMinutes != nil {
		s.SyncIntervalMinutes = *req.SyncIntervalMinutes
	}

	if err := h.settings.Save(ctx, s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}
