// Package ws bridges the signal bus to WebSocket observers and answers
// history queries over the same connection.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/seerbot/internal/bus"
	"github.com/alanyoungcy/seerbot/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 8192

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// hubChannels are the bus channels fanned out to every connected client.
var hubChannels = []string{
	bus.ChannelTweet,
	bus.ChannelMarkets,
	bus.ChannelBalance,
	bus.ChannelSession,
	bus.ChannelAnalytics,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard may be served from a different origin.
		return true
	},
}

// StateProvider supplies the snapshots sent to clients on connect and the
// query surface behind the history request messages.
type StateProvider interface {
	Markets() []domain.Market
	Balance(ctx context.Context) (domain.Balance, error)
	Sessions() []domain.AnalysisSession
	FilterSessions(f domain.SessionFilter) []domain.AnalysisSession
	Session(id string) (domain.AnalysisSession, bool)
	Analytics() domain.SessionAnalytics
}

// client is one WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages connected observers: bus messages broadcast to every client,
// query responses go back only on the requesting client's send channel.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	state      StateProvider
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub bridging the signal bus to WebSocket clients.
func NewHub(sigBus domain.SignalBus, state StateProvider, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        sigBus,
		state:      state,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run starts the hub's event loop; call in a goroutine. It exits when ctx is
// cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range hubChannels {
		go h.subscribeToChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("total_clients", h.clientCount()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("total_clients", h.clientCount()))

		case data := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Client's send buffer is full; drop the message.
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToChannel forwards one bus channel into the broadcast loop.
func (h *Hub) subscribeToChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("failed to subscribe to channel",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				return
			}
			h.broadcast <- data
		}
	}
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.register <- c
	c.sendInitialState(r.Context())

	go c.writePump()
	go c.readPump()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// envelope frames every outgoing message.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// request is the frame clients send for history queries.
type request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// filterRequest is the wire shape of a history filter query.
type filterRequest struct {
	Statuses      []string `json:"statuses"`
	From          *string  `json:"from"`
	To            *string  `json:"to"`
	Categories    []string `json:"categories"`
	Author        string   `json:"author"`
	Text          string   `json:"text"`
	MinTrades     *int     `json:"minTrades"`
	MaxTrades     *int     `json:"maxTrades"`
	MinConfidence *float64 `json:"minConfidence"`
}

func (f filterRequest) toDomain() domain.SessionFilter {
	out := domain.SessionFilter{
		Categories:    f.Categories,
		Author:        f.Author,
		Text:          f.Text,
		MinTrades:     f.MinTrades,
		MaxTrades:     f.MaxTrades,
		MinConfidence: f.MinConfidence,
	}
	for _, s := range f.Statuses {
		out.Statuses = append(out.Statuses, domain.SessionStatus(s))
	}
	if f.From != nil {
		if t, err := time.Parse(time.RFC3339, *f.From); err == nil {
			out.From = &t
		}
	}
	if f.To != nil {
		if t, err := time.Parse(time.RFC3339, *f.To); err == nil {
			out.To = &t
		}
	}
	return out
}

// sendInitialState pushes the current markets, balance, and session history
// so a fresh client can render without waiting for live events.
func (c *client) sendInitialState(ctx context.Context) {
	c.sendEnvelope(bus.ChannelMarkets, c.hub.state.Markets())

	if balance, err := c.hub.state.Balance(ctx); err == nil {
		c.sendEnvelope(bus.ChannelBalance, balance)
	}

	c.sendEnvelope("sessions:history", c.hub.state.Sessions())
}

// sendEnvelope marshals and queues one frame for this client only.
func (c *client) sendEnvelope(typ string, payload any) {
	data, err := json.Marshal(envelope{Type: typ, Payload: payload})
	if err != nil {
		c.hub.logger.Error("marshal envelope failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump reads query frames from the client until the connection breaks.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error", slog.String("error", err.Error()))
			}
			return
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		c.handleRequest(req)
	}
}

// handleRequest answers one history query on this client's send channel.
func (c *client) handleRequest(req request) {
	switch req.Type {
	case "sessions:history":
		c.sendEnvelope("sessions:history", c.hub.state.Sessions())

	case "history:filter":
		var f filterRequest
		if len(req.Payload) > 0 {
			if err := json.Unmarshal(req.Payload, &f); err != nil {
				c.sendEnvelope("error", map[string]string{"message": "invalid filter payload"})
				return
			}
		}
		c.sendEnvelope("history:filtered", c.hub.state.FilterSessions(f.toDomain()))

	case "sessions:analytics":
		c.sendEnvelope(bus.ChannelAnalytics, c.hub.state.Analytics())

	case "history:session":
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Payload, &p); err != nil || p.ID == "" {
			c.sendEnvelope("error", map[string]string{"message": "missing session id"})
			return
		}
		session, ok := c.hub.state.Session(p.ID)
		if !ok {
			c.sendEnvelope("error", map[string]string{"message": "session not found"})
			return
		}
		c.sendEnvelope("history:session-detail", session)

	default:
		c.hub.logger.Debug("ignoring unknown request", slog.String("type", req.Type))
	}
}

// writePump writes queued frames and keepalive pings until the connection
// breaks. Frames are JSON text messages.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
