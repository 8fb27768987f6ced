package domain

// EventKind is the discriminator carried in the "event" field of inbound messages
type EventKind string

const (
	EventSnapshot EventKind = "initial_state"
	EventProgress EventKind = "progress"
	EventUnknown  EventKind = "unknown"
)

// Event is the closed set of inbound stream events
type Event interface {
	Kind() EventKind
	event()
}

// SnapshotEvent carries the full task list, sent by the backend on every (re)connect
type SnapshotEvent struct {
	Tasks []Task
}

// ProgressEvent is an incremental update for a single task
type ProgressEvent struct {
	ID       string  `json:"id"`
	FileName string  `json:"fileName"`
	Percent  float64 `json:"percent"`
}

// UnknownEvent is produced for malformed or unrecognized payloads
type UnknownEvent struct {
	Reason string
	Raw    string
}

func (SnapshotEvent) Kind() EventKind { return EventSnapshot }
func (ProgressEvent) Kind() EventKind { return EventProgress }
func (UnknownEvent) Kind() EventKind  { return EventUnknown }

func (SnapshotEvent) event() {}
func (ProgressEvent) event() {}
func (UnknownEvent) event()  {}

// Recognized reports whether the decoder understood the event
func Recognized(ev Event) bool {
	return ev != nil && ev.Kind() != EventUnknown
}

// CommandAction names an outbound user intent
type CommandAction string

const (
	ActionDownload CommandAction = "download"
	ActionPause    CommandAction = "pause"
	ActionResume   CommandAction = "resume"
)

// Command is an outbound intent. It goes out over REST and, optionally, the event stream.
type Command struct {
	Action CommandAction `json:"action"`
	URL    string        `json:"url"`
}

// ConnState is the lifecycle state of the event-stream connection
type ConnState string

const (
	ConnIdle       ConnState = "idle"
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnError      ConnState = "error"
	ConnClosed     ConnState = "closed"
)
