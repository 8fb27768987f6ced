package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

// Commander issues commands to the backend
type Commander interface {
	StartDownload(ctx context.Context, url string) error
	PauseDownload(ctx context.Context, url string) error
	ResumeDownload(ctx context.Context, url string) error
}

// Notifier surfaces user-visible notices
type Notifier interface {
	NotifyStartFailed(url string, err error)
	NotifyStopDegraded(paused int)
}

// NoticeBoard carries user-facing notices to presentation clients.
// It is called from request goroutines and must be safe for concurrent use.
type NoticeBoard interface {
	PostNotice(notice domain.Notice)
}

// CommandSender mirrors commands over the event stream
type CommandSender interface {
	Send(cmd domain.Command) bool
}

// CommandDispatcher translates user intents into optimistic store updates
// plus backend requests. Backend failures are reported, never rolled back.
// All methods except Wait must be called from the Session loop.
type CommandDispatcher struct {
	store     *TaskStore
	commander Commander
	notifier  Notifier
	mirror    CommandSender
	recorder  domain.FaultRecorder
	notices   NoticeBoard
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewCommandDispatcher creates a new dispatcher
func NewCommandDispatcher(store *TaskStore, commander Commander, notifier Notifier, logger *zap.Logger) *CommandDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandDispatcher{
		store:     store,
		commander: commander,
		notifier:  notifier,
		logger:    logger,
	}
}

// SetMirror enables mirroring commands over the event stream
func (d *CommandDispatcher) SetMirror(sender CommandSender) {
	d.mirror = sender
}

// SetRecorder sets the fault recorder for failed backend requests
func (d *CommandDispatcher) SetRecorder(recorder domain.FaultRecorder) {
	d.recorder = recorder
}

// SetNoticeBoard sets where start failures and degraded stops are announced
func (d *CommandDispatcher) SetNoticeBoard(board NoticeBoard) {
	d.notices = board
}

// Start submits a new download. It reports whether a new task was created.
func (d *CommandDispatcher) Start(url string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, domain.ErrEmptyURL
	}

	created := d.store.AddOptimistic(domain.NewPendingTask(url))

	d.dispatch(domain.Command{Action: domain.ActionDownload, URL: url}, func(err error) {
		d.post(domain.NewNotice(domain.NoticeStartFailed, url,
			fmt.Sprintf("download %s failed to start: %v", url, err)))
		if d.notifier != nil {
			d.notifier.NotifyStartFailed(url, err)
		}
	})
	return created, nil
}

// Pause pauses one task
func (d *CommandDispatcher) Pause(id string) error {
	return d.transition(id, domain.StatusPaused, domain.ActionPause)
}

// Resume resumes one task
func (d *CommandDispatcher) Resume(id string) error {
	return d.transition(id, domain.StatusDownloading, domain.ActionResume)
}

// PauseAll pauses every downloading task and returns how many were paused
func (d *CommandDispatcher) PauseAll() int {
	return d.bulk(domain.StatusPaused, domain.ActionPause, domain.StatusDownloading)
}

// ResumeAll resumes every paused or failed task and returns how many were resumed
func (d *CommandDispatcher) ResumeAll() int {
	return d.bulk(domain.StatusDownloading, domain.ActionResume, domain.StatusPaused, domain.StatusError)
}

// StopAll has no backend support, so it pauses every downloading task
// and tells the user it did so.
func (d *CommandDispatcher) StopAll() int {
	n := d.PauseAll()
	d.logger.Info("Stop requested, downloads paused instead", zap.Int("paused", n))
	d.post(domain.NewNotice(domain.NoticeStopDegraded, "",
		fmt.Sprintf("stop is not supported by the backend, paused %d download(s) instead", n)))
	if d.notifier != nil {
		d.notifier.NotifyStopDegraded(n)
	}
	return n
}

// Wait blocks until all in-flight backend requests have finished
func (d *CommandDispatcher) Wait() {
	d.wg.Wait()
}

func (d *CommandDispatcher) transition(id string, to domain.TaskStatus, action domain.CommandAction) error {
	task, ok := d.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if err := d.store.SetStatus(id, to); err != nil {
		return err
	}

	d.dispatch(domain.Command{Action: action, URL: task.URL}, nil)
	return nil
}

func (d *CommandDispatcher) bulk(to domain.TaskStatus, action domain.CommandAction, from ...domain.TaskStatus) int {
	n := 0
	for _, t := range d.store.Tasks() {
		if !hasStatus(t.Status, from) {
			continue
		}
		if err := d.store.SetStatus(t.ID, to); err != nil {
			continue
		}
		d.dispatch(domain.Command{Action: action, URL: t.URL}, nil)
		n++
	}
	return n
}

func (d *CommandDispatcher) dispatch(cmd domain.Command, onFailure func(error)) {
	if d.mirror != nil && !d.mirror.Send(cmd) {
		d.logger.Debug("Stream mirror dropped command",
			zap.String("action", string(cmd.Action)),
			zap.String("url", cmd.URL))
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.send(context.Background(), cmd); err != nil {
			d.logger.Error("Backend command failed",
				zap.String("action", string(cmd.Action)),
				zap.String("url", cmd.URL),
				zap.Error(err))
			if d.recorder != nil {
				d.recorder.Record(domain.NewFault(domain.FaultCommand, cmd.URL, err.Error()))
			}
			if onFailure != nil {
				onFailure(err)
			}
			return
		}

		d.logger.Debug("Backend command accepted",
			zap.String("action", string(cmd.Action)),
			zap.String("url", cmd.URL))
	}()
}

func (d *CommandDispatcher) send(ctx context.Context, cmd domain.Command) error {
	switch cmd.Action {
	case domain.ActionDownload:
		return d.commander.StartDownload(ctx, cmd.URL)
	case domain.ActionPause:
		return d.commander.PauseDownload(ctx, cmd.URL)
	case domain.ActionResume:
		return d.commander.ResumeDownload(ctx, cmd.URL)
	}
	return fmt.Errorf("unsupported action: %s", cmd.Action)
}

func (d *CommandDispatcher) post(notice domain.Notice) {
	if d.notices != nil {
		d.notices.PostNotice(notice)
	}
}

func hasStatus(status domain.TaskStatus, set []domain.TaskStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
