package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/smart-dial/internal/logger"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 5 * time.Second
	// pongWait is how long a client may stay silent before it is dropped.
	pongWait = 30 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 20 * time.Second

	clientSendBuffer = 32
	broadcastBuffer  = 128
	registerBuffer   = 16
)

// Hub tracks connected observers and fans broadcast frames out to them.
// Frames are already-serialized JSON; per-client send queues keep a slow
// reader from stalling the rest.
type Hub struct {
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub constructs a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *client, registerBuffer),
		unregister: make(chan *client, registerBuffer),
		clients:    make(map[*client]struct{}),
	}
}

// Run processes hub events until the context ends,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()

			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			logger.Debugf(ctx, "observer %s connected, %d online", c.remoteAddr, count)
		case c := <-h.unregister:
			h.remove(ctx, c, "disconnect")
		case frame := <-h.broadcast:
			// Collect stalled clients first, the map must not change mid-range.
			var stalled []*client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					stalled = append(stalled, c)
				}
			}
			h.mu.Unlock()

			for _, c := range stalled {
				h.remove(ctx, c, "send queue full")
			}
		}
	}
}

// Broadcast enqueues a serialized frame for every connected client.
// It never blocks; a full hub queue drops the frame.
func (h *Hub) Broadcast(ctx context.Context, frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		logger.Warnf(ctx, "observer feed queue is full, dropping %d bytes", len(frame))
	}
}

// remove closes a client exactly once: the send channel is only closed
// when the client was still in the map.
func (h *Hub) remove(ctx context.Context, c *client, reason string) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if !present {
		return
	}

	c.conn.Close()
	close(c.send)

	logger.Debugf(ctx, "observer %s dropped (%s), %d online", c.remoteAddr, reason, count)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.conn.Close()
		close(c.send)
		delete(h.clients, c)
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	remoteAddr string
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *client {
	return &client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, clientSendBuffer),
		remoteAddr: remoteAddr,
	}
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with pings. It exits on write error or when the hub
// closes the send channel.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// readPump discards inbound frames, it exists to notice disconnects and
// answer control frames. On read error the client unregisters itself.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.hub.unregister <- c

			return
		}
	}
}
