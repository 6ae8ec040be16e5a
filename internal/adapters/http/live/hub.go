// Package live pushes match state views to websocket clients.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/matchtag/pkg/logger"
	"github.com/okian/matchtag/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBuffer     = 16
	broadcastQueue = 256
)

// Message is one frame sent to clients.
type Message struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Data    any    `json:"data,omitempty"`
}

// Snapshot reads the current state of a match for a client that is joining.
// It runs on the hub loop after the client is registered, so every later
// broadcast follows it.
type Snapshot func(ctx context.Context) (Message, error)

type envelope struct {
	matchID string
	body    []byte
}

// Client is one websocket connection following a match.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	matchID string
	send    chan []byte

	snapshot Snapshot
}

// Hub fans messages out to the clients of each match.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logger.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCheckOrigin sets the origin check of the websocket upgrade.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// NewHub creates a Hub. Call Run before serving clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:     logger.Get().Named("live"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, broadcastQueue),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			metrics.UpdateLiveClients(0)
			return

		case c := <-h.register:
			h.add(ctx, c)

		case c := <-h.unregister:
			h.remove(c)

		case env := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for c := range h.clients[env.matchID] {
				select {
				case c.send <- env.body:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.remove(c)
			}
			metrics.RecordLiveBroadcast()
		}
	}
}

// add sends the client its snapshot and then starts routing broadcasts to it.
// A client whose snapshot fails is closed without joining.
func (h *Hub) add(ctx context.Context, c *Client) {
	if c.snapshot != nil {
		msg, err := c.snapshot(ctx)
		if err == nil {
			var body []byte
			if body, err = json.Marshal(msg); err == nil {
				c.send <- body
			}
		}
		if err != nil {
			h.logger.Warn(ctx, "live snapshot failed", logger.String("match_id", c.matchID), logger.Error(err))
			close(c.send)
			return
		}
	}

	h.mu.Lock()
	set, ok := h.clients[c.matchID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.matchID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	metrics.UpdateLiveClients(h.total())
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.matchID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.matchID)
		}
	}
	h.mu.Unlock()
	metrics.UpdateLiveClients(h.total())
}

func (h *Hub) total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Clients returns the number of clients following matchID.
func (h *Hub) Clients(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

// Broadcast queues msg for the clients of matchID. It drops the message when
// the hub is saturated.
func (h *Hub) Broadcast(matchID, kind string, data any) {
	body, err := json.Marshal(Message{Type: kind, MatchID: matchID, Data: data})
	if err != nil {
		h.logger.Error(context.Background(), "encode live message", logger.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{matchID: matchID, body: body}:
	default:
		metrics.RecordErrorByComponent("live", "broadcast_dropped")
	}
}

// ServeWS upgrades the request and follows matchID until the client leaves.
// snapshot, when not nil, is the first message the client receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, matchID string, snapshot Snapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &Client{hub: h, conn: conn, matchID: matchID, send: make(chan []byte, sendBuffer), snapshot: snapshot}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards client frames and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug(context.Background(), "websocket closed", logger.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case body, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
