package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/pulldown-go/internal/app"
	"go.uber.org/zap"
)

const (
	viewPingInterval = 30 * time.Second
	viewWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// viewClient holds at most one pending frame: the newest view not yet written
type viewClient struct {
	mu     sync.Mutex
	latest chan []byte
}

func newViewClient() *viewClient {
	return &viewClient{latest: make(chan []byte, 1)}
}

// offer replaces any unsent frame with data
func (c *viewClient) offer(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.latest:
	default:
	}
	c.latest <- data
}

// ViewWebSocketHandler pushes every new view to connected clients
type ViewWebSocketHandler struct {
	view    *app.ViewEngine
	logger  *zap.Logger
	clients map[*viewClient]bool
	mu      sync.RWMutex
	stop    func()
}

// NewViewWebSocketHandler creates a handler subscribed to view changes
func NewViewWebSocketHandler(view *app.ViewEngine, log *zap.Logger) *ViewWebSocketHandler {
	h := &ViewWebSocketHandler{
		view:    view,
		logger:  log,
		clients: make(map[*viewClient]bool),
	}
	h.stop = view.Subscribe(h.Broadcast)
	return h
}

// Close unsubscribes from the view engine
func (h *ViewWebSocketHandler) Close() {
	h.stop()
}

// ClientCount returns the number of connected clients
func (h *ViewWebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles GET /api/v1/ws
func (h *ViewWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	client := h.register()
	defer h.unregister(client)

	h.logger.Info("View client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	initial, err := json.Marshal(h.view.Current())
	if err != nil {
		h.logger.Error("Failed to marshal view", zap.Error(err))
		return
	}
	if err := h.write(conn, websocket.TextMessage, initial); err != nil {
		return
	}

	// Read messages from client so close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(viewPingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-client.latest:
			if err := h.write(conn, websocket.TextMessage, data); err != nil {
				h.logger.Debug("Failed to send view", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			h.logger.Info("View client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
			return
		}
	}
}

func (h *ViewWebSocketHandler) register() *viewClient {
	client := newViewClient()
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	return client
}

func (h *ViewWebSocketHandler) unregister(client *viewClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

// Broadcast hands a view to every connected client. A client that falls
// behind skips intermediate views but always ends on the newest one.
func (h *ViewWebSocketHandler) Broadcast(view app.View) {
	data, err := json.Marshal(view)
	if err != nil {
		h.logger.Error("Failed to marshal view for broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.offer(data)
	}
}

func (h *ViewWebSocketHandler) write(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(viewWriteTimeout))
	return conn.WriteMessage(messageType, data)
}
