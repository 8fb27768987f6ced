package app

import (
	"fmt"
	"sync"

	"github.com/yourusername/pulldown-go/internal/domain"
)

// View is the read model handed to presentation clients
type View struct {
	Filter     domain.Filter    `json:"filter"`
	Search     string           `json:"search"`
	Selected   string           `json:"selected,omitempty"`
	Connection domain.ConnState `json:"connection"`
	Tasks      []domain.Task    `json:"tasks"`
	Stats      domain.TaskStats `json:"stats"`
	Notices    []domain.Notice  `json:"notices"`
}

// maxNotices bounds the notice list; the oldest notice is dropped first
const maxNotices = 20

type viewSubscriber struct {
	id int
	fn func(View)
}

// ViewEngine derives filtered lists and aggregate stats from the task
// collection. It also holds the session UI state (filter, search text,
// selection). Reads may come from any goroutine.
type ViewEngine struct {
	mu       sync.RWMutex
	tasks    []domain.Task
	stats    domain.TaskStats
	filter   domain.Filter
	search   string
	selected string
	conn     domain.ConnState
	notices  []domain.Notice

	// pubMu spans computing a view and handing it to every subscriber,
	// so subscribers see views in the order they were computed
	pubMu       sync.Mutex
	subMu       sync.Mutex
	subscribers []viewSubscriber
	nextID      int
}

// NewViewEngine creates an engine showing all tasks
func NewViewEngine() *ViewEngine {
	return &ViewEngine{
		filter: domain.FilterAll,
		conn:   domain.ConnIdle,
		stats:  domain.ComputeStats(nil),
	}
}

// FilterTasks applies a filter and search text to tasks, preserving order
func FilterTasks(tasks []domain.Task, filter domain.Filter, search string) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Matches(t) && domain.MatchesSearch(t, search) {
			out = append(out, t)
		}
	}
	return out
}

// Update replaces the task collection. It is registered as a TaskStore observer.
func (v *ViewEngine) Update(tasks []domain.Task) {
	v.mu.Lock()
	v.tasks = tasks
	v.stats = domain.ComputeStats(tasks)
	if v.selected != "" && !containsTask(tasks, v.selected) {
		v.selected = ""
	}
	v.mu.Unlock()

	v.publish()
}

// Query returns the tasks matching filter and search
func (v *ViewEngine) Query(filter domain.Filter, search string) []domain.Task {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return FilterTasks(v.tasks, filter, search)
}

// Stats returns the aggregate stats of the whole collection
func (v *ViewEngine) Stats() domain.TaskStats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// Filtered returns the tasks matching the session filter and search text
func (v *ViewEngine) Filtered() []domain.Task {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return FilterTasks(v.tasks, v.filter, v.search)
}

// Lookup returns one task by ID regardless of the active filter
func (v *ViewEngine) Lookup(id string) (domain.Task, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, t := range v.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Current returns a snapshot of the whole view
func (v *ViewEngine) Current() View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.currentLocked()
}

// SetFilter changes the active filter and clears the selection
func (v *ViewEngine) SetFilter(filter domain.Filter) error {
	if filter == "" {
		filter = domain.FilterAll
	}
	if !domain.ValidateFilter(filter) {
		return fmt.Errorf("unknown filter: %q", filter)
	}

	v.mu.Lock()
	v.filter = filter
	v.selected = ""
	v.mu.Unlock()

	v.publish()
	return nil
}

// SetSearch changes the search text
func (v *ViewEngine) SetSearch(search string) {
	v.mu.Lock()
	v.search = search
	v.mu.Unlock()

	v.publish()
}

// Select marks a task as selected. An unknown ID clears the selection.
func (v *ViewEngine) Select(id string) {
	v.mu.Lock()
	if containsTask(v.tasks, id) {
		v.selected = id
	} else {
		v.selected = ""
	}
	v.mu.Unlock()

	v.publish()
}

// Selected returns the selected task, if any
func (v *ViewEngine) Selected() (domain.Task, bool) {
	v.mu.RLock()
	id := v.selected
	v.mu.RUnlock()

	if id == "" {
		return domain.Task{}, false
	}
	return v.Lookup(id)
}

// SetConnState records the stream connection state for display
func (v *ViewEngine) SetConnState(state domain.ConnState) {
	v.mu.Lock()
	changed := v.conn != state
	v.conn = state
	v.mu.Unlock()

	if changed {
		v.publish()
	}
}

// PostNotice adds a user-facing notice and publishes the new view
func (v *ViewEngine) PostNotice(notice domain.Notice) {
	v.mu.Lock()
	v.notices = append(v.notices, notice)
	if len(v.notices) > maxNotices {
		v.notices = append([]domain.Notice(nil), v.notices[len(v.notices)-maxNotices:]...)
	}
	v.mu.Unlock()

	v.publish()
}

// Notices returns the pending notices, oldest first
func (v *ViewEngine) Notices() []domain.Notice {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]domain.Notice{}, v.notices...)
}

// DismissNotice removes one notice. It reports whether the notice existed.
func (v *ViewEngine) DismissNotice(id string) bool {
	v.mu.Lock()
	found := false
	for i, n := range v.notices {
		if n.ID == id {
			v.notices = append(v.notices[:i:i], v.notices[i+1:]...)
			found = true
			break
		}
	}
	v.mu.Unlock()

	if found {
		v.publish()
	}
	return found
}

// ClearNotices removes every notice and returns how many were removed
func (v *ViewEngine) ClearNotices() int {
	v.mu.Lock()
	n := len(v.notices)
	v.notices = nil
	v.mu.Unlock()

	if n > 0 {
		v.publish()
	}
	return n
}

// Subscribe registers fn to receive every new view. The returned func
// unregisters it. fn must not call back into the engine's mutators.
func (v *ViewEngine) Subscribe(fn func(View)) func() {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	id := v.nextID
	v.nextID++
	v.subscribers = append(v.subscribers, viewSubscriber{id: id, fn: fn})

	return func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		for i, s := range v.subscribers {
			if s.id == id {
				v.subscribers = append(v.subscribers[:i], v.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (v *ViewEngine) publish() {
	v.pubMu.Lock()
	defer v.pubMu.Unlock()

	view := v.Current()

	v.subMu.Lock()
	subs := make([]viewSubscriber, len(v.subscribers))
	copy(subs, v.subscribers)
	v.subMu.Unlock()

	for _, s := range subs {
		s.fn(view)
	}
}

func (v *ViewEngine) currentLocked() View {
	return View{
		Filter:     v.filter,
		Search:     v.search,
		Selected:   v.selected,
		Connection: v.conn,
		Tasks:      FilterTasks(v.tasks, v.filter, v.search),
		Stats:      v.stats,
		Notices:    append([]domain.Notice{}, v.notices...),
	}
}

func containsTask(tasks []domain.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
