package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultEventBuffer = 256
	writeTimeout       = 10 * time.Second
)

// StreamConfig configures the event-stream connection
type StreamConfig struct {
	URL              string
	ClientID         string
	HandshakeTimeout time.Duration
	EventBuffer      int
}

// StreamConnection owns the single event-stream connection to the backend.
// Events() stays valid across reconnects; Send never fails loudly.
type StreamConnection struct {
	config   StreamConfig
	dialer   *websocket.Dialer
	decoder  *EventDecoder
	recorder domain.FaultRecorder
	logger   *zap.Logger

	events chan domain.Event

	mu        sync.Mutex
	writeMu   sync.Mutex
	conn      *websocket.Conn
	state     domain.ConnState
	done      chan struct{}
	stop      chan struct{}
	closing   bool
	observers []func(domain.ConnState)
}

// NewStreamConnection creates an idle connection manager. recorder may be nil.
func NewStreamConnection(config StreamConfig, decoder *EventDecoder, recorder domain.FaultRecorder, logger *zap.Logger) *StreamConnection {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	if decoder == nil {
		decoder = NewEventDecoder(recorder, logger)
	}

	done := make(chan struct{})
	close(done)

	return &StreamConnection{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		decoder:  decoder,
		recorder: recorder,
		logger:   logger,
		events:   make(chan domain.Event, config.EventBuffer),
		state:    domain.ConnIdle,
		done:     done,
	}
}

// Events returns the channel of recognized inbound events
func (c *StreamConnection) Events() <-chan domain.Event {
	return c.events
}

// State returns the current lifecycle state
func (c *StreamConnection) State() domain.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel closed when the current connection ends
func (c *StreamConnection) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// OnStateChange registers an observer for lifecycle transitions
func (c *StreamConnection) OnStateChange(fn func(domain.ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Connect establishes the logical connection. It is a no-op while a
// connection is already connecting or open.
func (c *StreamConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == domain.ConnConnecting || c.state == domain.ConnOpen {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	from, observers := c.swapStateLocked(domain.ConnConnecting)
	c.mu.Unlock()

	c.announce(from, domain.ConnConnecting, observers)

	header := http.Header{}
	if c.config.ClientID != "" {
		header.Set(ClientIDHeader, c.config.ClientID)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.transportFault("dial failed", err)
		c.setState(domain.ConnError)
		c.setState(domain.ConnClosed)
		return fmt.Errorf("failed to connect to %s: %w", c.config.URL, err)
	}

	done := make(chan struct{})
	stop := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.stop = stop
	c.mu.Unlock()

	c.setState(domain.ConnOpen)

	go c.readLoop(conn, done, stop)
	return nil
}

// Send transmits a command when the stream is open. Otherwise the command
// is dropped and false is returned; callers fall back to the REST channel.
func (c *StreamConnection) Send(cmd domain.Command) bool {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if state != domain.ConnOpen || conn == nil {
		c.logger.Debug("Dropping command, stream not open",
			zap.String("action", string(cmd.Action)),
			zap.String("url", cmd.URL),
			zap.String("state", string(state)))
		c.record(domain.FaultDroppedSend, cmd.URL, fmt.Sprintf("%s while %s", cmd.Action, state))
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(cmd); err != nil {
		c.transportFault("send failed", err)
		return false
	}
	return true
}

// Close ends the current connection without reporting an error
func (c *StreamConnection) Close() error {
	c.mu.Lock()
	conn, stop := c.conn, c.stop
	if conn == nil || c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	close(stop)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return conn.Close()
}

// Maintain keeps the connection open until ctx is cancelled. After a
// failed dial or a dropped connection it waits delay before the next
// attempt; a zero delay disables reconnecting. The backend sends a fresh
// snapshot on every connect.
func (c *StreamConnection) Maintain(ctx context.Context, delay time.Duration) {
	defer c.Close()

	for {
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("Stream connect failed", zap.Error(err))
		} else {
			select {
			case <-c.Done():
			case <-ctx.Done():
				return
			}
		}

		if delay <= 0 || ctx.Err() != nil {
			return
		}

		c.logger.Info("Reconnecting to stream", zap.Duration("delay", delay))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (c *StreamConnection) readLoop(conn *websocket.Conn, done, stop chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			c.conn = nil
			c.mu.Unlock()

			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.transportFault("read failed", err)
				c.setState(domain.ConnError)
			}
			conn.Close()
			c.setState(domain.ConnClosed)
			return
		}

		ev := c.decoder.Decode(data)
		if !domain.Recognized(ev) {
			continue
		}

		select {
		case c.events <- ev:
		case <-stop:
		}
	}
}

func (c *StreamConnection) setState(state domain.ConnState) {
	c.mu.Lock()
	from, observers := c.swapStateLocked(state)
	c.mu.Unlock()

	c.announce(from, state, observers)
}

// swapStateLocked must be called with c.mu held
func (c *StreamConnection) swapStateLocked(state domain.ConnState) (domain.ConnState, []func(domain.ConnState)) {
	from := c.state
	c.state = state
	observers := make([]func(domain.ConnState), len(c.observers))
	copy(observers, c.observers)
	return from, observers
}

func (c *StreamConnection) announce(from, state domain.ConnState, observers []func(domain.ConnState)) {
	c.logger.Info("Stream state changed",
		zap.String("from", string(from)),
		zap.String("to", string(state)),
		zap.String("url", c.config.URL))

	for _, fn := range observers {
		fn(state)
	}
}

func (c *StreamConnection) transportFault(msg string, err error) {
	c.logger.Warn("Stream transport fault", zap.String("op", msg), zap.Error(err))
	c.record(domain.FaultTransport, "", fmt.Sprintf("%s: %v", msg, err))
}

func (c *StreamConnection) record(kind domain.FaultKind, taskID, detail string) {
	if c.recorder != nil {
		c.recorder.Record(domain.NewFault(kind, taskID, detail))
	}
}
