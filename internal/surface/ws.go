package surface

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsSendBuffer   = 16
)

// Hub pushes player state snapshots to connected surface clients over
// WebSocket. A slow client drops frames rather than blocking the broadcast.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:   log,
		conns: make(map[*websocket.Conn]chan []byte),
	}
}

// Handle upgrades the request and streams snapshots until the client leaves.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	send := make(chan []byte, wsSendBuffer)
	h.mu.Lock()
	h.conns[conn] = send
	h.mu.Unlock()

	go h.writeLoop(conn, send)

	// Read loop only detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

// Broadcast serializes v and queues it for every client.
func (h *Hub) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("broadcast marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	for conn, send := range h.conns {
		select {
		case send <- payload:
		default:
			// Slow client: skip this frame.
			_ = conn
		}
	}
	h.mu.Unlock()
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.drop(conn)
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, send chan []byte) {
	for payload := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.conns[conn]
	if ok {
		delete(h.conns, conn)
	}
	h.mu.Unlock()

	if ok {
		close(send)
	}
	_ = conn.Close()
}
