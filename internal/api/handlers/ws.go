package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wonhee/sweep/internal/scan"
	"github.com/wonhee/sweep/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub pushes scan progress to connected websocket clients. Register it
// as the orchestrator's progress callback.
type Hub struct {
	logger *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:  log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Serve upgrades the connection and keeps it until the peer closes
// GET /ws/scan
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Drain reads so we notice the peer closing
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one progress snapshot to every connected client,
// dropping clients whose writes fail
func (h *Hub) Broadcast(v scan.View) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(v); err != nil {
			h.drop(conn)
		}
	}
}

// ClientCount reports connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	conn.Close()
}
