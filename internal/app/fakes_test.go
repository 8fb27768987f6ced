package app

import (
	"context"
	"errors"
	"sync"

	"github.com/yourusername/pulldown-go/internal/domain"
)

var errBackendDown = errors.New("backend unreachable")

// mockCommander implements Commander for testing
type mockCommander struct {
	mu    sync.Mutex
	calls []domain.Command
	fail  map[domain.CommandAction]error
}

func newMockCommander() *mockCommander {
	return &mockCommander{fail: make(map[domain.CommandAction]error)}
}

func (m *mockCommander) failOn(action domain.CommandAction, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[action] = err
}

func (m *mockCommander) record(action domain.CommandAction, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, domain.Command{Action: action, URL: url})
	return m.fail[action]
}

func (m *mockCommander) StartDownload(ctx context.Context, url string) error {
	return m.record(domain.ActionDownload, url)
}

func (m *mockCommander) PauseDownload(ctx context.Context, url string) error {
	return m.record(domain.ActionPause, url)
}

func (m *mockCommander) ResumeDownload(ctx context.Context, url string) error {
	return m.record(domain.ActionResume, url)
}

func (m *mockCommander) Calls() []domain.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Command, len(m.calls))
	copy(out, m.calls)
	return out
}

// mockNotifier implements Notifier for testing
type mockNotifier struct {
	mu          sync.Mutex
	startFailed []string
	degraded    []int
}

func (m *mockNotifier) NotifyStartFailed(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startFailed = append(m.startFailed, url)
}

func (m *mockNotifier) NotifyStopDegraded(paused int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = append(m.degraded, paused)
}

func (m *mockNotifier) StartFailed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.startFailed...)
}

func (m *mockNotifier) Degraded() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.degraded...)
}

// mockStream implements EventStream for testing
type mockStream struct {
	events chan domain.Event
	state  domain.ConnState

	mu   sync.Mutex
	sent []domain.Command
}

func newMockStream() *mockStream {
	return &mockStream{
		events: make(chan domain.Event, 16),
		state:  domain.ConnOpen,
	}
}

func (m *mockStream) Events() <-chan domain.Event { return m.events }

func (m *mockStream) State() domain.ConnState { return m.state }

func (m *mockStream) Send(cmd domain.Command) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, cmd)
	return m.state == domain.ConnOpen
}

func (m *mockStream) Sent() []domain.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Command(nil), m.sent...)
}

// mockFaultRepo implements domain.FaultRepository for testing
type mockFaultRepo struct {
	mu     sync.Mutex
	faults []*domain.Fault
}

func (m *mockFaultRepo) Create(fault *domain.Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, fault)
	return nil
}

func (m *mockFaultRepo) FindRecent(limit int) ([]*domain.Fault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Fault
	for i := len(m.faults) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.faults[i])
	}
	return out, nil
}

func (m *mockFaultRepo) FindByKind(kind domain.FaultKind, limit int) ([]*domain.Fault, error) {
	return nil, nil
}

func (m *mockFaultRepo) GetStats() (*domain.FaultStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.FaultStats{}
	for _, f := range m.faults {
		stats.Add(f.Kind, 1)
	}
	return stats, nil
}

func task(id string, status domain.TaskStatus, fileName string) domain.Task {
	return domain.Task{ID: id, URL: id, FileName: fileName, Status: status}
}

func ids(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
