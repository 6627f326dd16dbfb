package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	appLog "countdown/internal/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientSendSize = 32
)

// wsMessage is the envelope of every frame pushed to dashboard clients.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to connected websocket clients. All client-set
// mutation happens on the run goroutine.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	count      atomic.Int32
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.count.Store(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int32(len(h.clients)))
			appLog.Debug("ws client registered", "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int32(len(h.clients)))
				appLog.Debug("ws client unregistered", "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than stall everyone.
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.count.Store(int32(len(h.clients)))
		}
	}
}

// Clients reports how many websocket clients are connected.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// publish encodes and queues a frame. It never blocks; a full queue drops
// the frame since the next tick supersedes it.
func (h *Hub) publish(typ string, data any) {
	msg, err := encodeFrame(typ, data)
	if err != nil {
		appLog.Error("ws encode failed", err, "type", typ)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		appLog.Debug("ws broadcast queue full; frame dropped", "type", typ)
	}
}

func encodeFrame(typ string, data any) ([]byte, error) {
	return json.Marshal(wsMessage{Type: typ, Data: data})
}

// readPump only drains control frames; clients send intents over HTTP.
func (c *client) readPump(ctx context.Context, h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 10)
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

func (c *client) writePump() {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Dashboards may be served from another origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveWS upgrades the request and queues first so a new client sees the
// dashboard immediately instead of waiting for the next tick.
func (h *Hub) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request, first []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("ws upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	if first != nil {
		c.send <- first
	}

	select {
	case h.register <- c:
	case <-ctx.Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(ctx, h)
}
