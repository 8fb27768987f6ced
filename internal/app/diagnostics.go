package app

import (
	"sync"

	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

const recentFaultBuffer = 100

// Diagnostics counts faults for this session and journals them when a
// repository is configured. It implements domain.FaultRecorder.
type Diagnostics struct {
	repo   domain.FaultRepository
	logger *zap.Logger

	mu       sync.Mutex
	counters domain.FaultStats
	recent   []*domain.Fault
}

// DiagnosticsReport is the read model served to presentation clients
type DiagnosticsReport struct {
	Session domain.FaultStats  `json:"session"`
	Journal *domain.FaultStats `json:"journal,omitempty"`
	Recent  []*domain.Fault    `json:"recent"`
}

// NewDiagnostics creates a new fault recorder. repo may be nil.
func NewDiagnostics(repo domain.FaultRepository, logger *zap.Logger) *Diagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diagnostics{
		repo:   repo,
		logger: logger,
	}
}

// Record counts a fault and persists it
func (d *Diagnostics) Record(fault *domain.Fault) {
	d.mu.Lock()
	d.counters.Add(fault.Kind, 1)
	d.recent = append(d.recent, fault)
	if len(d.recent) > recentFaultBuffer {
		d.recent = d.recent[len(d.recent)-recentFaultBuffer:]
	}
	d.mu.Unlock()

	d.logger.Warn("Fault recorded",
		zap.String("kind", string(fault.Kind)),
		zap.String("task_id", fault.TaskID),
		zap.String("detail", fault.Detail))

	if d.repo != nil {
		if err := d.repo.Create(fault); err != nil {
			d.logger.Error("Failed to persist fault", zap.String("id", fault.ID), zap.Error(err))
		}
	}
}

// Stats returns the counters for this session
func (d *Diagnostics) Stats() domain.FaultStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

// Report builds the diagnostics read model
func (d *Diagnostics) Report(limit int) (*DiagnosticsReport, error) {
	report := &DiagnosticsReport{Session: d.Stats()}

	if d.repo == nil {
		report.Recent = d.recentInMemory(limit)
		return report, nil
	}

	journal, err := d.repo.GetStats()
	if err != nil {
		return nil, err
	}
	recent, err := d.repo.FindRecent(limit)
	if err != nil {
		return nil, err
	}
	report.Journal = journal
	report.Recent = recent
	return report, nil
}

func (d *Diagnostics) recentInMemory(limit int) []*domain.Fault {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*domain.Fault, 0, n)
	for i := len(d.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, d.recent[i])
	}
	return out
}
