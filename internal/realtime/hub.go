// Package realtime pushes collection invalidations to connected websocket clients so they
// refetch what changed.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

// Event is the payload broadcast to every client.
type Event struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

// Subscriber delivers invalidated collection names until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func(collection string)) error
}

type client struct {
	conn *ws.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected clients and fans events out to them.
type Hub struct {
	logger   *slog.Logger
	upgrader ws.Upgrader
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a Hub. An empty allowedOrigins admits same-origin requests only.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:  logger,
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
	if len(allowedOrigins) > 0 {
		origins := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			origins[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return origins[r.Header.Get("Origin")]
		}
	}
	return h
}

// Run forwards invalidations from sub to clients until ctx ends.
func (h *Hub) Run(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(ctx, func(collection string) {
		h.Broadcast(Event{Type: "invalidate", Collection: collection, At: h.now().UTC()})
	})
}

// Clients reports how many connections are open.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues evt for every client. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("ws: marshal event", slog.Any("error", err))
		return
	}
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.logger.Warn("ws: dropping slow client", slog.String("remote", c.conn.RemoteAddr().String()))
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// ServeHTTP upgrades the connection and holds it until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade", slog.Any("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	total := h.register(c)
	h.logger.Debug("ws: client connected", slog.Int("clients", total))

	go h.writePump(c)
	h.readPump(c)
	h.unregister(c)
	h.logger.Debug("ws: client disconnected")
}

// readPump drains client frames so control messages are processed.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
