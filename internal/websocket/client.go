package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hpdash/internal/config"
	"hpdash/internal/dataprocessing"
	"hpdash/internal/services"
)

const maxMessageSize = 4096

// selectMessage is what a client sends to change its selection.
type selectMessage struct {
	Type     string   `json:"type"`
	Regions  []string `json:"regions"`
	YearFrom int      `json:"year_from"`
	YearTo   int      `json:"year_to"`
	Stats    []string `json:"stats,omitempty"`
}

// dashboardMessage is the server's answer: the filtered view and its
// summary for the client's selection.
type dashboardMessage struct {
	Type    string                    `json:"type"`
	View    *services.ViewResponse    `json:"view"`
	Summary *services.SummaryResponse `json:"summary"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Client is a single websocket connection. Its selection lives entirely
// in the messages it sends; the server keeps no per-client filter state
// between requests.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	service *services.DashboardService
	cfg     config.WebSocketConfig
	logger  *slog.Logger

	// mu guards send against the hub closing it while the read
	// goroutine is queueing a response. closeSend is only called from
	// the hub loop; every write goes through trySend.
	mu     sync.Mutex
	closed bool
}

// trySend queues a message without blocking. It reports false when the
// client is already closed or its buffer is full.
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// detach hands the client back to the hub, tolerating a hub that has
// already stopped.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.quit:
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and starts
// the client's read and write pumps.
func ServeWS(hub *Hub, service *services.DashboardService, cfg config.WebSocketConfig, logger *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// Origin enforcement happens in the CORS middleware.
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorContext(r.Context(), "websocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("remote_addr", r.RemoteAddr))
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			send:    make(chan []byte, 8),
			service: service,
			cfg:     cfg,
			logger:  logger.With(slog.String("component", "websocket.client")),
		}
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump reads selection messages and answers each with the
// recomputed dashboard for that selection.
func (c *Client) readPump() {
	defer c.detach()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}

		var msg selectMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("invalid message: " + err.Error())
			continue
		}
		if msg.Type != TypeSelect {
			c.sendError("unknown message type: " + msg.Type)
			continue
		}

		c.handleSelect(msg)
	}
}

// handleSelect runs the client's selection through the dashboard service
// and queues the result on the client's own send channel.
func (c *Client) handleSelect(msg selectMessage) {
	req := services.SelectionRequest{
		Regions:  msg.Regions,
		YearFrom: msg.YearFrom,
		YearTo:   msg.YearTo,
	}
	for _, kind := range msg.Stats {
		req.Stats = append(req.Stats, dataprocessing.StatKind(kind))
	}

	ctx := context.Background()
	view, err := c.service.View(ctx, req)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	summary, err := c.service.Summary(ctx, req)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	payload, err := json.Marshal(dashboardMessage{
		Type:    TypeDashboard,
		View:    view,
		Summary: summary,
	})
	if err != nil {
		c.logger.Error("failed to marshal dashboard message", slog.String("error", err.Error()))
		return
	}

	if !c.trySend(payload) {
		c.logger.Warn("dropping dashboard message for slow client")
	}
}

func (c *Client) sendError(message string) {
	payload, err := json.Marshal(errorMessage{Type: TypeError, Error: message})
	if err != nil {
		return
	}
	c.trySend(payload)
}

// writePump flushes queued messages and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
