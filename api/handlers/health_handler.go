package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	session *app.Session
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(session *app.Session) *HealthHandler {
	return &HealthHandler{
		session: session,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	SessionID  string           `json:"session_id"`
	Connection domain.ConnState `json:"connection"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Version:    Version,
		SessionID:  h.session.ID(),
		Connection: h.session.ConnState(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if state := h.session.ConnState(); state != domain.ConnOpen {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "event stream is " + string(state),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
