package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sbhjt-gr/inferra-sub000/internal/app"
	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	registry  *app.Registry
	submitter domain.Submitter
	history   domain.HistoryRepository
	listLimit int
	logger    *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(
	registry *app.Registry,
	submitter domain.Submitter,
	history domain.HistoryRepository,
	listLimit int,
	logger *zap.Logger,
) *DownloadHandler {
	return &DownloadHandler{
		registry:  registry,
		submitter: submitter,
		history:   history,
		listLimit: listLimit,
		logger:    logger,
	}
}

// RegisterDownloadRequest represents a request to track a download
type RegisterDownloadRequest struct {
	ID   int64  `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
	URL  string `json:"url,omitempty"`
}

// RegisterDownload handles POST /api/v1/downloads. When a URL is given the
// transfer is first submitted to the downloader subsystem; either way the id
// is registered for reconciliation.
func (h *DownloadHandler) RegisterDownload(c *gin.Context) {
	var req RegisterDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.URL != "" {
		if err := h.submitter.Submit(c.Request.Context(), req.ID, req.URL); err != nil {
			h.logger.Error("Failed to submit transfer",
				zap.Int64("id", req.ID),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	h.registry.Register(req.ID, req.Name)
	c.JSON(http.StatusCreated, domain.NewDownloadInfo(req.ID, req.Name))
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Snapshot())
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel. The entry is
// always removed locally; an abort failure is reported alongside.
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid download id"})
		return
	}

	if err := h.registry.Cancel(id); err != nil {
		h.logger.Error("Abort request failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "removed": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// GetHistory handles GET /api/v1/downloads/history
func (h *DownloadHandler) GetHistory(c *gin.Context) {
	limit := h.listLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := h.history.FindRecent(limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	counts, err := h.history.CountByReason()
	if err != nil {
		h.logger.Error("Failed to count history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":  len(h.registry.Snapshot()),
		"retired": counts,
	})
}

// StreamEvents handles GET /api/v1/downloads/events, pushing the registry
// snapshot to the client after every merge pass as server-sent events.
func (h *DownloadHandler) StreamEvents(c *gin.Context) {
	updates, unsubscribe := h.registry.Subscribe()
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Current state first so clients need no separate snapshot request
	c.SSEvent("snapshot", h.registry.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snapshot)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
