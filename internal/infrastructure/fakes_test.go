package infrastructure

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/pulldown-go/internal/domain"
)

// faultSink implements domain.FaultRecorder for testing
type faultSink struct {
	mu     sync.Mutex
	faults []*domain.Fault
}

func (s *faultSink) Record(fault *domain.Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault)
}

func (s *faultSink) count(kind domain.FaultKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.faults {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newStreamBackend starts a gin server whose /ws handler runs onConn
func newStreamBackend(t *testing.T, onConn func(c *gin.Context, conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		conn, err := testUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		onConn(c, conn)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// drain blocks until the peer goes away
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
