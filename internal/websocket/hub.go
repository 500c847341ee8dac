// Package websocket implements the live dashboard socket. Each connected
// client holds its own selection: it sends select messages and receives
// the recomputed view and summary for that selection only. The hub's one
// shared concern is broadcasting a reload notice when the dataset behind
// all connections is swapped.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message types exchanged over the socket.
const (
	TypeSelect    = "select"
	TypeDashboard = "dashboard"
	TypeReload    = "reload"
	TypeError     = "error"
)

// Hub maintains the set of active clients and broadcasts dataset-level
// events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}

	logger *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start starts the hub's event loop.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop shuts down the hub and closes every client connection.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", slog.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", slog.Int("clients", count))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(message) {
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					client.closeSend()
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			return
		}
	}
}

// BroadcastReload notifies every client that the dataset was swapped so
// they can re-request their current selection.
func (h *Hub) BroadcastReload(fingerprint string) {
	payload, err := json.Marshal(map[string]string{
		"type":        TypeReload,
		"fingerprint": fingerprint,
	})
	if err != nil {
		h.logger.Error("failed to marshal reload broadcast", slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
