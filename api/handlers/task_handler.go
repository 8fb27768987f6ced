package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

// StopDegradedMessage tells clients that stop fell back to pause
const StopDegradedMessage = "stop is not supported by the backend, downloads were paused instead"

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	session *app.Session
	logger  *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(session *app.Session, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		session: session,
		logger:  logger,
	}
}

// TaskURLRequest carries the URL a command applies to
type TaskURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// ViewRequest updates the session filter and search text
type ViewRequest struct {
	Filter domain.Filter `json:"filter"`
	Search string        `json:"search"`
}

// TaskListResponse is returned by GET /api/v1/tasks
type TaskListResponse struct {
	Filter domain.Filter `json:"filter"`
	Search string        `json:"search"`
	Count  int           `json:"count"`
	Tasks  []domain.Task `json:"tasks"`
}

// NoticeListResponse is returned by GET /api/v1/notices
type NoticeListResponse struct {
	Count   int             `json:"count"`
	Notices []domain.Notice `json:"notices"`
}

// BulkResponse is returned by the bulk commands
type BulkResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// AddTask handles POST /api/v1/tasks
func (h *TaskHandler) AddTask(c *gin.Context) {
	var req TaskURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url := strings.TrimSpace(req.URL)
	if err := h.session.Start(c.Request.Context(), url); err != nil {
		h.writeError(c, "Failed to start download", url, err)
		return
	}

	task, _ := h.session.View().Lookup(url)
	c.JSON(http.StatusAccepted, task)
}

// ListTasks handles GET /api/v1/tasks. Without query parameters the
// session filter and search text apply.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	view := h.session.View()
	filter, hasFilter := c.GetQuery("filter")
	search, hasSearch := c.GetQuery("search")

	var resp TaskListResponse
	if hasFilter || hasSearch {
		f := domain.Filter(filter)
		if f == "" {
			f = domain.FilterAll
		}
		if !domain.ValidateFilter(f) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown filter: " + filter})
			return
		}
		resp = TaskListResponse{Filter: f, Search: search, Tasks: view.Query(f, search)}
	} else {
		current := view.Current()
		resp = TaskListResponse{Filter: current.Filter, Search: current.Search, Tasks: current.Tasks}
	}

	resp.Count = len(resp.Tasks)
	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /api/v1/tasks/stats
func (h *TaskHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.View().Stats())
}

// LookupTask handles GET /api/v1/tasks/lookup?id=
func (h *TaskHandler) LookupTask(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'id' is required"})
		return
	}

	task, ok := h.session.View().Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// PauseTask handles POST /api/v1/tasks/pause
func (h *TaskHandler) PauseTask(c *gin.Context) {
	h.single(c, "Failed to pause download", h.session.Pause)
}

// ResumeTask handles POST /api/v1/tasks/resume
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	h.single(c, "Failed to resume download", h.session.Resume)
}

// PauseAll handles POST /api/v1/tasks/pause-all
func (h *TaskHandler) PauseAll(c *gin.Context) {
	n, err := h.session.PauseAll(c.Request.Context())
	h.writeBulk(c, n, "", err)
}

// ResumeAll handles POST /api/v1/tasks/resume-all
func (h *TaskHandler) ResumeAll(c *gin.Context) {
	n, err := h.session.ResumeAll(c.Request.Context())
	h.writeBulk(c, n, "", err)
}

// StopAll handles POST /api/v1/tasks/stop-all
func (h *TaskHandler) StopAll(c *gin.Context) {
	n, err := h.session.StopAll(c.Request.Context())
	h.writeBulk(c, n, StopDegradedMessage, err)
}

// GetView handles GET /api/v1/view
func (h *TaskHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.View().Current())
}

// SetView handles PUT /api/v1/view
func (h *TaskHandler) SetView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.SetView(req.Filter, req.Search); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.session.View().Current())
}

// ListNotices handles GET /api/v1/notices
func (h *TaskHandler) ListNotices(c *gin.Context) {
	notices := h.session.View().Notices()
	c.JSON(http.StatusOK, NoticeListResponse{Count: len(notices), Notices: notices})
}

// ClearNotices handles DELETE /api/v1/notices
func (h *TaskHandler) ClearNotices(c *gin.Context) {
	n := h.session.View().ClearNotices()
	c.JSON(http.StatusOK, BulkResponse{Count: n})
}

// DismissNotice handles DELETE /api/v1/notices/:id
func (h *TaskHandler) DismissNotice(c *gin.Context) {
	if !h.session.View().DismissNotice(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notice not found: " + c.Param("id")})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) single(c *gin.Context, msg string, fn func(ctx context.Context, id string) error) {
	var req TaskURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := fn(c.Request.Context(), req.URL); err != nil {
		h.writeError(c, msg, req.URL, err)
		return
	}

	task, _ := h.session.View().Lookup(req.URL)
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) writeBulk(c *gin.Context, n int, message string, err error) {
	if err != nil {
		h.writeError(c, "Bulk command failed", "", err)
		return
	}
	c.JSON(http.StatusOK, BulkResponse{Count: n, Message: message})
}

func (h *TaskHandler) writeError(c *gin.Context, msg, url string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyURL):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, app.ErrSessionStopped):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.String("url", url), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
