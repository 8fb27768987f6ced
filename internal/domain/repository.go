package domain

import (
	"time"

	"github.com/google/uuid"
)

// FaultKind classifies non-fatal faults observed by the sync engine
type FaultKind string

const (
	FaultTransport      FaultKind = "transport"
	FaultDroppedSend    FaultKind = "dropped_send"
	FaultDecode         FaultKind = "decode"
	FaultOrphanProgress FaultKind = "orphan_progress"
	FaultCommand        FaultKind = "command"
)

// Fault is one diagnostic record
type Fault struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Kind      FaultKind `json:"kind" gorm:"not null;index"`
	TaskID    string    `json:"task_id,omitempty" gorm:"index"`
	Detail    string    `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// NewFault creates a new fault record
func NewFault(kind FaultKind, taskID, detail string) *Fault {
	return &Fault{
		ID:        uuid.New().String(),
		Kind:      kind,
		TaskID:    taskID,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
}

// FaultRecorder receives faults from any component. Implementations must not block.
type FaultRecorder interface {
	Record(fault *Fault)
}

// FaultRepository defines the interface for the fault journal
type FaultRepository interface {
	// Create stores a fault
	Create(fault *Fault) error

	// FindRecent returns the newest faults first
	FindRecent(limit int) ([]*Fault, error)

	// FindByKind returns faults of one kind, newest first
	FindByKind(kind FaultKind, limit int) ([]*Fault, error)

	// GetStats returns fault counts by kind
	GetStats() (*FaultStats, error)
}

// FaultStats represents fault counts by kind
type FaultStats struct {
	Total          int64 `json:"total"`
	Transport      int64 `json:"transport"`
	DroppedSend    int64 `json:"dropped_send"`
	Decode         int64 `json:"decode"`
	OrphanProgress int64 `json:"orphan_progress"`
	Command        int64 `json:"command"`
}

// Add increments the counter for kind
func (s *FaultStats) Add(kind FaultKind, n int64) {
	s.Total += n
	switch kind {
	case FaultTransport:
		s.Transport += n
	case FaultDroppedSend:
		s.DroppedSend += n
	case FaultDecode:
		s.Decode += n
	case FaultOrphanProgress:
		s.OrphanProgress += n
	case FaultCommand:
		s.Command += n
	}
}
