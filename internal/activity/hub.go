// Package activity fans out anonymized purchase events to websocket clients
// and keeps a short in-memory backlog for the recent-activity endpoint.
package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"prompt-storefront/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Event carries no user data.
type Event struct {
	Type       string    `json:"type"`
	ItemType   string    `json:"item_type"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the client set from the goroutine running Run.
type Hub struct {
	log      logging.Logger
	upgrader websocket.Upgrader

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu         sync.RWMutex
	recent     []Event
	recentSize int
	count      int
}

func NewHub(log logging.Logger, recentSize int, allowedOrigins []string) *Hub {
	if recentSize <= 0 {
		recentSize = 20
	}

	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		recentSize: recentSize,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run serves register, unregister and broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount(len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Publish records the event and queues it for connected clients. It never
// blocks the caller; events are dropped from the stream when the queue is full.
func (h *Hub) Publish(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	h.mu.Lock()
	h.recent = append(h.recent, e)
	if len(h.recent) > h.recentSize {
		h.recent = h.recent[len(h.recent)-h.recentSize:]
	}
	h.mu.Unlock()

	msg, err := json.Marshal(e)
	if err != nil {
		h.log.Error(context.Background(), "marshal activity event", "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn(context.Background(), "activity broadcast queue full, dropping event")
	}
}

// Recent returns up to limit events, newest first.
func (h *Hub) Recent(limit int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.recent) {
		limit = len(h.recent)
	}

	out := make([]Event, 0, limit)
	for i := len(h.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.recent[i])
	}
	return out
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams events to the connection. The
// recent backlog is sent first, oldest to newest.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	backlog := h.Recent(sendBuffer / 2)
	for i := len(backlog) - 1; i >= 0; i-- {
		if msg, err := json.Marshal(backlog[i]); err == nil {
			c.send <- msg
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go h.writePump(c)
	go h.readPump(c)

	return nil
}

// readPump only handles control frames; clients do not send events.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug(context.Background(), "activity websocket read", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
