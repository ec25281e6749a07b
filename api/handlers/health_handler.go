package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sbhjt-gr/inferra-sub000/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	registry *app.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *app.Registry) *HealthHandler {
	return &HealthHandler{
		registry: registry,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status string `json:"status"`
	Poller struct {
		Running bool `json:"running"`
		Active  int  `json:"active"`
	} `json:"poller"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{Status: "ok"}
	response.Poller.Running = h.registry.IsPolling()
	response.Poller.Active = len(h.registry.Snapshot())

	c.JSON(http.StatusOK, response)
}
