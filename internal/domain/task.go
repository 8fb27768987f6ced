package domain

import (
	"errors"
	"strings"
)

// TaskStatus represents the current status of a tracked download
type TaskStatus string

const (
	StatusQueued      TaskStatus = "Queued"
	StatusDownloading TaskStatus = "Downloading"
	StatusPaused      TaskStatus = "Paused"
	StatusCompleted   TaskStatus = "Completed"
	StatusError       TaskStatus = "Error"
)

// PendingFileName is shown until the backend resolves the real file name
const PendingFileName = "Pending..."

var (
	ErrEmptyURL          = errors.New("url is required")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// AllStatuses lists every status in sidebar order
var AllStatuses = []TaskStatus{
	StatusDownloading,
	StatusPaused,
	StatusCompleted,
	StatusQueued,
	StatusError,
}

// Task represents one tracked download. The source URL doubles as its ID.
type Task struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	FileName   string     `json:"fileName"`
	Status     TaskStatus `json:"status"`
	TotalSize  int64      `json:"totalSize"`
	Downloaded int64      `json:"downloaded"`
	Progress   float64    `json:"progress"`
}

// NewPendingTask creates the optimistic placeholder for a freshly submitted URL
func NewPendingTask(url string) Task {
	return Task{
		ID:       url,
		URL:      url,
		FileName: PendingFileName,
		Status:   StatusDownloading,
	}
}

// ParseTaskStatus maps a wire status onto a known status
func ParseTaskStatus(s string) (TaskStatus, bool) {
	for _, status := range AllStatuses {
		if strings.EqualFold(s, string(status)) {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// CanTransition checks the per-task state machine:
// Queued -> Downloading -> {Paused, Completed, Error}, Paused -> Downloading,
// Error -> Downloading. Completed is terminal.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusQueued:
		return to == StatusDownloading
	case StatusDownloading:
		return to == StatusPaused || to == StatusCompleted || to == StatusError
	case StatusPaused, StatusError:
		return to == StatusDownloading
	}
	return false
}

// ApplyPercent merges a progress percentage into the task.
// Percent is authoritative and Downloaded is derived from it.
func (t *Task) ApplyPercent(percent float64) {
	if t.Status == StatusCompleted && percent < 100 {
		return
	}

	p := ClampProgress(percent)
	if t.Status == StatusDownloading && p < t.Progress {
		p = t.Progress
	}
	t.Progress = p

	if percent >= 100 {
		t.MarkCompleted()
		return
	}
	t.syncDownloaded()
}

// MarkCompleted forces the completed invariants
func (t *Task) MarkCompleted() {
	t.Status = StatusCompleted
	t.Progress = 100
	t.syncDownloaded()
}

// RecomputeProgress derives progress from byte counts, as done for snapshot entries
func (t *Task) RecomputeProgress() {
	switch {
	case t.Status == StatusCompleted:
		t.Progress = 100
	case t.TotalSize > 0:
		t.Progress = ClampProgress(float64(t.Downloaded) / float64(t.TotalSize) * 100)
	default:
		t.Progress = 0
	}
	if t.TotalSize > 0 && t.Downloaded > t.TotalSize {
		t.Downloaded = t.TotalSize
	}
	if t.Downloaded < 0 {
		t.Downloaded = 0
	}
}

func (t *Task) syncDownloaded() {
	if t.TotalSize > 0 {
		t.Downloaded = int64(t.Progress * float64(t.TotalSize) / 100)
		if t.Downloaded > t.TotalSize {
			t.Downloaded = t.TotalSize
		}
	}
}

// ClampProgress clamps a percentage to [0, 100]
func ClampProgress(p float64) float64 {
	if p != p || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
