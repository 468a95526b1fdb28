package debug

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
)

const (
	// tapBacklog bounds the per-client outbox. Slow readers lose
	// events rather than stalling the emitting domain.
	tapBacklog = 64

	tapWriteTimeout = 5 * time.Second
)

// EventTap mirrors facade events onto websocket clients. It satisfies
// events.Sink; Emit never blocks.
type EventTap struct {
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewEventTap creates an empty tap.
func NewEventTap(log *logging.Logger) *EventTap {
	if log == nil {
		log = logging.NewNop()
	}
	return &EventTap{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Read-only local tooling, same reasoning as the CORS
			// policy on the JSON routes.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Emit mirrors one event to every connected client. A full client
// outbox drops the event for that client only.
func (t *EventTap) Emit(event string, data any) {
	payload, err := json.Marshal(gin.H{
		"event": event,
		"data":  data,
		"ts":    time.Now().UnixMilli(),
	})
	if err != nil {
		t.log.Warn("Failed to encode tap event", zap.String("event", event), zap.Error(err))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for conn, outbox := range t.clients {
		select {
		case outbox <- payload:
		default:
			t.log.Debug("Dropping tap event for slow client",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.String("event", event),
			)
		}
	}
}

// Handle upgrades the request and streams events until the client goes
// away.
func (t *EventTap) Handle(c *gin.Context) {
	conn, err := t.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		t.log.Warn("Tap upgrade failed", zap.Error(err))
		return
	}

	outbox := make(chan []byte, tapBacklog)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.clients[conn] = outbox
	t.mu.Unlock()
	t.log.Info("Tap client connected", zap.String("remote", conn.RemoteAddr().String()))

	go t.writeLoop(conn, outbox)

	// Drain the client side; its close is our unregister signal.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	t.drop(conn)
}

func (t *EventTap) writeLoop(conn *websocket.Conn, outbox chan []byte) {
	for payload := range outbox {
		conn.SetWriteDeadline(time.Now().Add(tapWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			t.drop(conn)
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second))
	conn.Close()
}

func (t *EventTap) drop(conn *websocket.Conn) {
	t.mu.Lock()
	outbox, ok := t.clients[conn]
	if ok {
		delete(t.clients, conn)
	}
	t.mu.Unlock()
	if ok {
		close(outbox)
	}
	conn.Close()
}

// Close disconnects every client. Further Emits are no-ops.
func (t *EventTap) Close() {
	t.mu.Lock()
	t.closed = true
	conns := make([]*websocket.Conn, 0, len(t.clients))
	for conn := range t.clients {
		conns = append(conns, conn)
	}
	t.mu.Unlock()
	for _, conn := range conns {
		t.drop(conn)
	}
}
