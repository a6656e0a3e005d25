// Package notify fans out segment-ready events to WebSocket
// subscribers, grounded on the donor's websocket_handler.go: one
// goroutine per client, a mutex-guarded client set, and per-client
// write isolation so a slow or dead subscriber never blocks others.
package notify

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is published whenever a segment sink finishes a Put.
type Event struct {
	JobID          string `json:"job_id"`
	TrackID        uint32 `json:"track_id"`
	SequenceNumber uint32 `json:"sequence_number"`
	Kind           string `json:"kind"`
	StorageKey     string `json:"storage_key"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn     *websocket.Conn
	jobID    string
	mu       sync.Mutex
	isActive bool
}

// Hub tracks connected subscribers and broadcasts events to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Subscribe upgrades r to a WebSocket connection and registers it to
// receive events for jobID. Call from an http.HandlerFunc.
func (h *Hub) Subscribe(jobID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, jobID: jobID, isActive: true}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.readPump(c)
}

// readPump discards incoming messages and just watches for
// disconnects, deregistering the client when the connection drops.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.mu.Lock()
	c.isActive = false
	c.conn.Close()
	c.mu.Unlock()
}

// Broadcast publishes event to every subscriber watching event.JobID.
// A failed write to one subscriber closes that subscriber only.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.jobID == event.JobID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.mu.Lock()
		if !c.isActive {
			c.mu.Unlock()
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := c.conn.WriteJSON(event)
		c.mu.Unlock()
		if err != nil {
			log.Printf("notify: write failed for job %s: %v", event.JobID, err)
			h.remove(c)
		}
	}
}
