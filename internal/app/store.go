package app

import (
	"fmt"

	"github.com/yourusername/pulldown-go/internal/domain"
)

type storeObserver struct {
	id int
	fn func([]domain.Task)
}

// TaskStore is the in-memory mirror of backend task state.
// It is not safe for concurrent use; the Session loop owns it.
type TaskStore struct {
	tasks     []domain.Task
	index     map[string]int
	observers []storeObserver
	nextID    int
	onOrphan  func(domain.ProgressEvent)
	orphans   int
}

// NewTaskStore creates an empty store
func NewTaskStore() *TaskStore {
	return &TaskStore{index: make(map[string]int)}
}

// OnOrphan sets the hook called for progress events with no matching task
func (s *TaskStore) OnOrphan(fn func(domain.ProgressEvent)) {
	s.onOrphan = fn
}

// Subscribe registers an observer called with a copy of the collection
// after every mutation. The returned func unregisters it.
func (s *TaskStore) Subscribe(fn func([]domain.Task)) func() {
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, storeObserver{id: id, fn: fn})

	return func() {
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// ApplySnapshot replaces the whole collection. Progress is recomputed from
// byte counts and the order is reversed so the newest task comes first.
func (s *TaskStore) ApplySnapshot(tasks []domain.Task) {
	next := make([]domain.Task, 0, len(tasks))
	seen := make(map[string]int, len(tasks))

	for _, t := range tasks {
		if t.ID == "" {
			t.ID = t.URL
		}
		if t.ID == "" {
			continue
		}
		if t.URL == "" {
			t.URL = t.ID
		}
		if t.FileName == "" {
			t.FileName = domain.PendingFileName
		}
		if status, ok := domain.ParseTaskStatus(string(t.Status)); ok {
			t.Status = status
		} else {
			t.Status = domain.StatusQueued
		}
		t.RecomputeProgress()

		if pos, dup := seen[t.ID]; dup {
			next[pos] = t
			continue
		}
		seen[t.ID] = len(next)
		next = append(next, t)
	}

	for i, j := 0, len(next)-1; i < j; i, j = i+1, j-1 {
		next[i], next[j] = next[j], next[i]
	}

	s.tasks = next
	s.reindex()
	s.notify()
}

// ApplyProgress merges a progress event into its task. It returns false
// when the task is unknown; the event is then dropped and counted.
func (s *TaskStore) ApplyProgress(ev domain.ProgressEvent) bool {
	i, ok := s.index[ev.ID]
	if !ok {
		s.orphans++
		if s.onOrphan != nil {
			s.onOrphan(ev)
		}
		return false
	}

	t := &s.tasks[i]
	if ev.FileName != "" {
		t.FileName = ev.FileName
	}
	t.ApplyPercent(ev.Percent)

	s.notify()
	return true
}

// AddOptimistic inserts task at the front unless its ID is already known,
// in which case the existing task goes back to Downloading. Completed
// tasks stay completed. It reports whether a new row was created.
func (s *TaskStore) AddOptimistic(task domain.Task) bool {
	if task.ID == "" {
		task.ID = task.URL
	}

	if i, ok := s.index[task.ID]; ok {
		existing := &s.tasks[i]
		if existing.Status.CanTransition(domain.StatusDownloading) {
			existing.Status = domain.StatusDownloading
			s.notify()
		}
		return false
	}

	task.Progress = domain.ClampProgress(task.Progress)
	s.tasks = append([]domain.Task{task}, s.tasks...)
	s.reindex()
	s.notify()
	return true
}

// SetStatus applies a user-driven status transition. It is optimistic
// and never rolled back.
func (s *TaskStore) SetStatus(id string, status domain.TaskStatus) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	t := &s.tasks[i]
	if !t.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, t.Status, status)
	}
	if t.Status == status {
		return nil
	}

	t.Status = status
	if status == domain.StatusCompleted {
		t.MarkCompleted()
	}
	s.notify()
	return nil
}

// Get returns a copy of one task
func (s *TaskStore) Get(id string) (domain.Task, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Task{}, false
	}
	return s.tasks[i], true
}

// Tasks returns a copy of the collection in display order
func (s *TaskStore) Tasks() []domain.Task {
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of tasks
func (s *TaskStore) Len() int {
	return len(s.tasks)
}

// OrphanCount returns how many progress events were dropped for unknown tasks
func (s *TaskStore) OrphanCount() int {
	return s.orphans
}

func (s *TaskStore) reindex() {
	s.index = make(map[string]int, len(s.tasks))
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
}

func (s *TaskStore) notify() {
	for _, o := range s.observers {
		o.fn(s.Tasks())
	}
}
