package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/pulldown-go/internal/app"
	"go.uber.org/zap"
)

// DiagnosticsHandler serves fault counters and the fault journal
type DiagnosticsHandler struct {
	diagnostics  *app.Diagnostics
	defaultLimit int
	logger       *zap.Logger
}

// NewDiagnosticsHandler creates a new diagnostics handler
func NewDiagnosticsHandler(diagnostics *app.Diagnostics, defaultLimit int, logger *zap.Logger) *DiagnosticsHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &DiagnosticsHandler{
		diagnostics:  diagnostics,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// GetDiagnostics handles GET /api/v1/diagnostics
func (h *DiagnosticsHandler) GetDiagnostics(c *gin.Context) {
	limit := h.defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	report, err := h.diagnostics.Report(limit)
	if err != nil {
		h.logger.Error("Failed to build diagnostics report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}
