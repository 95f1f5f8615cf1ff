package web

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub fans status updates out to connected websocket clients.
// Only the Run goroutine writes to registered connections.
type Hub struct {
	log        logs.Log
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
}

func NewHub(log logs.Log) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			c.Close()
			delete(h.clients, c)
		}
		h.count.Store(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))
			h.log.Infof("Live client connected. Total: %d", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				c.Close()
				h.count.Store(int64(len(h.clients)))
				h.log.Infof("Live client disconnected. Total: %d", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Warnf("Live client write failed: %v", err)
					delete(h.clients, c)
					c.Close()
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Register adds c to the hub. It returns false if the hub has stopped.
func (h *Hub) Register(c *websocket.Conn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes and closes c.
func (h *Hub) Unregister(c *websocket.Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}
