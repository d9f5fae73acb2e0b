package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Hub bridges a Bus to any number of websocket clients: it subscribes to
// the bus once and rebroadcasts every Event as JSON to every connected
// client, dropping clients whose send buffer falls behind rather than
// blocking the fan-out loop.
type Hub struct {
	bus *Bus

	mu         sync.Mutex
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client

	ctx    context.Context
	cancel context.CancelFunc
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a Hub that will rebroadcast bus's events once Run starts.
func NewHub(bus *Bus) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		bus:        bus,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run subscribes to the bus and services (un)registration and broadcast
// until Stop is called. Intended to run in its own goroutine.
func (h *Hub) Run() {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				log.Printf("notify: marshal event: %v", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop closes every client connection and ends Run's loop.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and streams bus events to
// it until the client disconnects. This is the one HTTP-shaped surface
// the core exposes; it does no routing beyond the upgrade itself.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("notify: websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, subscriberBuffer)}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	go h.readPump(c)
	h.writePump(c)
}

func (h *Hub) writePump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for data := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump drains inbound frames only to detect client disconnects; this
// hub is publish-only and never acts on client messages.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}
