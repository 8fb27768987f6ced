package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrSessionStopped = errors.New("session stopped")
	ErrSessionRunning = errors.New("session already running")
)

// EventStream is the inbound half of the connection to the backend
type EventStream interface {
	Events() <-chan domain.Event
	Send(cmd domain.Command) bool
	State() domain.ConnState
}

// SessionConfig contains session options
type SessionConfig struct {
	ClientID       string
	MirrorCommands bool
}

// Session serializes every mutation of the task store onto one goroutine.
// Inbound events and user intents are applied in arrival order by Run.
type Session struct {
	id          string
	stream      EventStream
	store       *TaskStore
	view        *ViewEngine
	dispatcher  *CommandDispatcher
	diagnostics *Diagnostics
	logger      *zap.Logger

	intents chan func()
	stopped chan struct{}
	running atomic.Bool
}

// NewSession wires the store, view engine and dispatcher together
func NewSession(
	stream EventStream,
	commander Commander,
	notifier Notifier,
	diagnostics *Diagnostics,
	config SessionConfig,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if diagnostics == nil {
		diagnostics = NewDiagnostics(nil, logger)
	}
	id := config.ClientID
	if id == "" {
		id = uuid.New().String()
	}

	store := NewTaskStore()
	view := NewViewEngine()
	store.Subscribe(view.Update)
	store.OnOrphan(func(ev domain.ProgressEvent) {
		logger.Debug("Progress for unknown task dropped", zap.String("id", ev.ID))
		diagnostics.Record(domain.NewFault(domain.FaultOrphanProgress, ev.ID,
			fmt.Sprintf("percent=%.2f", ev.Percent)))
	})

	dispatcher := NewCommandDispatcher(store, commander, notifier, logger)
	dispatcher.SetRecorder(diagnostics)
	dispatcher.SetNoticeBoard(view)
	if config.MirrorCommands {
		dispatcher.SetMirror(stream)
	}

	return &Session{
		id:          id,
		stream:      stream,
		store:       store,
		view:        view,
		dispatcher:  dispatcher,
		diagnostics: diagnostics,
		logger:      logger,
		intents:     make(chan func()),
		stopped:     make(chan struct{}),
	}
}

// ID returns the client session ID
func (s *Session) ID() string {
	return s.id
}

// View returns the derived view engine. It is safe for concurrent reads.
func (s *Session) View() *ViewEngine {
	return s.view
}

// Diagnostics returns the fault recorder of this session
func (s *Session) Diagnostics() *Diagnostics {
	return s.diagnostics
}

// ConnState returns the current stream state
func (s *Session) ConnState() domain.ConnState {
	return s.stream.State()
}

// ConnectionChanged is registered as a stream state observer
func (s *Session) ConnectionChanged(state domain.ConnState) {
	s.view.SetConnState(state)
}

// Run processes events and intents until ctx is cancelled.
// In-flight backend requests are awaited before it returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}
	defer close(s.stopped)
	defer s.dispatcher.Wait()

	s.logger.Info("Session started", zap.String("session_id", s.id))

	events := s.stream.Events()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session stopped", zap.String("session_id", s.id))
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)
		case fn := <-s.intents:
			fn()
		}
	}
}

func (s *Session) handleEvent(ev domain.Event) {
	switch e := ev.(type) {
	case domain.SnapshotEvent:
		s.store.ApplySnapshot(e.Tasks)
		if tasks := s.store.Tasks(); len(tasks) > 0 {
			s.view.Select(tasks[0].ID)
		}
		s.logger.Info("Snapshot applied", zap.Int("tasks", s.store.Len()))
	case domain.ProgressEvent:
		s.store.ApplyProgress(e)
	default:
		s.logger.Debug("Ignoring event", zap.String("kind", string(ev.Kind())))
	}
}

// do runs fn on the session loop and waits for its result
func (s *Session) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	intent := func() { result <- fn() }

	select {
	case s.intents <- intent:
	case <-s.stopped:
		return ErrSessionStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start submits a URL for download
func (s *Session) Start(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.ErrEmptyURL
	}

	return s.do(ctx, func() error {
		created, err := s.dispatcher.Start(url)
		if err != nil {
			return err
		}
		if created {
			s.view.Select(url)
		}
		s.logger.Info("Download submitted", zap.String("url", url), zap.Bool("new", created))
		return nil
	})
}

// Pause pauses one task
func (s *Session) Pause(ctx context.Context, id string) error {
	return s.do(ctx, func() error { return s.dispatcher.Pause(id) })
}

// Resume resumes one task
func (s *Session) Resume(ctx context.Context, id string) error {
	return s.do(ctx, func() error { return s.dispatcher.Resume(id) })
}

// PauseAll pauses every downloading task
func (s *Session) PauseAll(ctx context.Context) (int, error) {
	return s.count(ctx, s.dispatcher.PauseAll)
}

// ResumeAll resumes every paused or failed task
func (s *Session) ResumeAll(ctx context.Context) (int, error) {
	return s.count(ctx, s.dispatcher.ResumeAll)
}

// StopAll pauses every downloading task and notifies the user
func (s *Session) StopAll(ctx context.Context) (int, error) {
	return s.count(ctx, s.dispatcher.StopAll)
}

// SetView updates the session filter and search text
func (s *Session) SetView(filter domain.Filter, search string) error {
	if err := s.view.SetFilter(filter); err != nil {
		return err
	}
	s.view.SetSearch(search)
	return nil
}

func (s *Session) count(ctx context.Context, fn func() int) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		n = fn()
		return nil
	})
	return n, err
}
