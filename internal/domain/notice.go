package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoticeKind classifies user-facing notices
type NoticeKind string

const (
	NoticeStartFailed  NoticeKind = "start_failed"
	NoticeStopDegraded NoticeKind = "stop_degraded"
)

// Notice is a message every presentation client must be able to show,
// such as a backend refusing to start a download
type Notice struct {
	ID        string     `json:"id"`
	Kind      NoticeKind `json:"kind"`
	TaskID    string     `json:"task_id,omitempty"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewNotice creates a new notice
func NewNotice(kind NoticeKind, taskID, message string) Notice {
	return Notice{
		ID:        uuid.New().String(),
		Kind:      kind,
		TaskID:    taskID,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
