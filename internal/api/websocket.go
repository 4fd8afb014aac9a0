package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/plant"
)

// WSEvent is the JSON envelope sent to WebSocket clients. Type is "state"
// for periodic snapshots, "plant_event" for equipment events, and "error"
// for rejected client commands.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub manages WebSocket client connections. It pushes plant events as they
// happen and a full state snapshot at a fixed interval, so a client needs no
// polling. Hub implements plant.Broadcaster.
type Hub struct {
	plant         *plant.Plant
	stateInterval time.Duration

	mu      sync.RWMutex
	clients map[*wsClient]bool

	registerCh   chan *wsClient
	unregisterCh chan *wsClient
	broadcastCh  chan []byte
}

// wsClient wraps a single WebSocket connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub pushing state snapshots every second.
func NewHub(p *plant.Plant) *Hub {
	return &Hub{
		plant:         p,
		stateInterval: time.Second,
		clients:       make(map[*wsClient]bool),
		registerCh:    make(chan *wsClient, 16),
		unregisterCh:  make(chan *wsClient, 16),
		broadcastCh:   make(chan []byte, 256),
	}
}

// Run processes register, unregister, broadcast, and the snapshot ticker.
// Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.stateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case client := <-h.registerCh:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregisterCh:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()

		case <-ticker.C:
			if h.ClientCount() > 0 {
				h.BroadcastEvent("state", h.plant.Snapshot())
			}

		case data := <-h.broadcastCh:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Client buffer full, skip.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastEvent marshals a WSEvent and queues it for all clients. Safe to
// call from any goroutine; drops when the broadcast backlog is full.
func (h *Hub) BroadcastEvent(eventType string, payload interface{}) {
	data, err := json.Marshal(WSEvent{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("websocket: marshal %s event: %v", eventType, err)
		return
	}
	select {
	case h.broadcastCh <- data:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the connection and serves it until either side
// closes. The first message a client receives is a full state snapshot.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // operator panels on the local network
	})
	if err != nil {
		log.Printf("websocket: accept failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	if data, err := json.Marshal(WSEvent{Type: "state", Payload: h.plant.Snapshot()}); err == nil {
		client.send <- data
	}

	h.registerCh <- client

	go h.writePump(r.Context(), client)
	h.readPump(r.Context(), client)
}

func (h *Hub) writePump(ctx context.Context, c *wsClient) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readPump accepts command JSON from the client until the connection drops.
// Bad commands are answered with an error frame instead of closing.
func (h *Hub) readPump(ctx context.Context, c *wsClient) {
	defer func() {
		h.unregisterCh <- c
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var cmd command.Command
		if err := json.Unmarshal(data, &cmd); err == nil {
			err = cmd.Validate()
		}
		if err == nil {
			err = h.plant.Submit(cmd)
		}
		if err != nil {
			h.sendError(c, err)
		}
	}
}

func (h *Hub) sendError(c *wsClient, err error) {
	data, merr := json.Marshal(WSEvent{Type: "error", Payload: err.Error()})
	if merr != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
