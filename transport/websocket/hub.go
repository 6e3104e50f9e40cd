// Package websocket is the connection gateway: it terminates persistent
// client connections, binds an identity per connection, dispatches inbound
// requests to the game service, and fans broadcast events out to named
// groups ("lobby", "user_<id>", "game_<id>").
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/caio-mrb/project-dad/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Per-client outbound buffer.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Hub maintains the set of active connections and their broadcast group
// membership. It implements service.Broadcaster.
type Hub struct {
	service service.GameService

	// mu guards conns and groups. Emit only ever read-locks; unregister
	// write-locks and releases before calling back into the service.
	mu     sync.RWMutex
	conns  map[string]*Client
	groups map[string]map[*Client]bool
}

// NewHub creates a hub. SetService must be called before serving
// connections; the hub and the service reference each other, so wiring
// happens in two steps.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Client),
		groups: make(map[string]map[*Client]bool),
	}
}

// SetService injects the request handler the hub dispatches to.
func (h *Hub) SetService(svc service.GameService) {
	h.service = svc
}

// ServeWS upgrades an HTTP request and starts the client's pumps. Each
// connection gets a fresh opaque handle used as its identity key everywhere.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn)

	h.mu.Lock()
	h.conns[client.id] = client
	h.mu.Unlock()

	log.Printf("Client %s connected", client.id)

	go client.writePump()
	go client.readPump()
}

// Emit marshals the event synchronously and queues it to every member of the
// group. Callers may hold a room lock; nothing here blocks on the network.
func (h *Hub) Emit(group, event string, payload any) {
	data, err := json.Marshal(&Response{Type: event, Data: payload})
	if err != nil {
		log.Printf("Failed to marshal %s broadcast: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.groups[group] {
		select {
		case client.send <- data:
		default:
			// Slow client; drop the event rather than block. The
			// ping/pong deadlines will reap a dead connection.
			log.Printf("Dropping %s event for client %s (buffer full)", event, client.id)
		}
	}
}

// Join adds a connection to a broadcast group. It reports false when the
// connection is no longer registered, which StartGame uses to detect players
// that vanished between joining the lobby and the owner pressing start.
func (h *Hub) Join(connID, group string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.conns[connID]
	if !ok {
		return false
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true
	return true
}

// Leave removes a connection from a broadcast group.
func (h *Hub) Leave(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.conns[connID]
	if !ok {
		return
	}
	h.dropFromGroup(client, group)
}

// ConnCount returns the number of connected clients.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// unregister removes a client from every group and then notifies the game
// service. The lock is released first: Disconnect re-enters the hub through
// Emit when it announces interruptions.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.id)
	for group := range h.groups {
		h.dropFromGroup(c, group)
	}
	close(c.send)
	h.mu.Unlock()

	log.Printf("Client %s disconnected", c.id)
	h.service.Disconnect(c.id)
}

func (h *Hub) dropFromGroup(c *Client, group string) {
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}
