package infrastructure

import (
	"encoding/json"
	"fmt"

	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

const maxRawInFault = 256

// envelope is the union of every inbound message shape
type envelope struct {
	Event    string     `json:"event"`
	Tasks    []wireTask `json:"tasks"`
	ID       string     `json:"id"`
	FileName string     `json:"fileName"`
	Percent  *float64   `json:"percent"`
}

// wireTask is the task shape sent in snapshots; progress is never trusted from the wire
type wireTask struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
	Status     string `json:"status"`
	TotalSize  int64  `json:"totalSize"`
	Downloaded int64  `json:"downloaded"`
}

// EventDecoder turns raw stream payloads into typed events
type EventDecoder struct {
	recorder domain.FaultRecorder
	logger   *zap.Logger
}

// NewEventDecoder creates a new decoder. recorder may be nil.
func NewEventDecoder(recorder domain.FaultRecorder, logger *zap.Logger) *EventDecoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventDecoder{recorder: recorder, logger: logger}
}

// Decode parses one message. It never fails: anything it cannot
// understand comes back as a domain.UnknownEvent.
func (d *EventDecoder) Decode(data []byte) domain.Event {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return d.unknown(data, fmt.Sprintf("malformed payload: %v", err))
	}

	switch domain.EventKind(env.Event) {
	case domain.EventProgress:
		if env.ID == "" {
			return d.unknown(data, "progress event without id")
		}
		if env.Percent == nil {
			return d.unknown(data, "progress event without percent")
		}
		return domain.ProgressEvent{
			ID:       env.ID,
			FileName: env.FileName,
			Percent:  *env.Percent,
		}

	case domain.EventSnapshot:
		tasks := make([]domain.Task, 0, len(env.Tasks))
		for _, wt := range env.Tasks {
			tasks = append(tasks, wt.toTask())
		}
		return domain.SnapshotEvent{Tasks: tasks}

	case "":
		return d.unknown(data, "missing event discriminator")

	default:
		return d.unknown(data, fmt.Sprintf("unrecognized event %q", env.Event))
	}
}

func (d *EventDecoder) unknown(data []byte, reason string) domain.Event {
	raw := string(data)
	if len(raw) > maxRawInFault {
		raw = raw[:maxRawInFault] + "..."
	}

	d.logger.Debug("Dropping inbound message",
		zap.String("reason", reason),
		zap.String("raw", raw))

	if d.recorder != nil {
		d.recorder.Record(domain.NewFault(domain.FaultDecode, "", reason))
	}
	return domain.UnknownEvent{Reason: reason, Raw: raw}
}

func (wt wireTask) toTask() domain.Task {
	status, ok := domain.ParseTaskStatus(wt.Status)
	if !ok {
		status = domain.StatusQueued
	}
	return domain.Task{
		ID:         wt.ID,
		URL:        wt.URL,
		FileName:   wt.FileName,
		Status:     status,
		TotalSize:  wt.TotalSize,
		Downloaded: wt.Downloaded,
	}
}
