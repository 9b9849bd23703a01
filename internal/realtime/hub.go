package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Client wraps one WebSocket connection. A user may hold several concurrent
// connections; each gets its own id and its own room joins.
type Client struct {
	ID       string
	UserID   uint
	Conn     *websocket.Conn
	LastPong time.Time

	writeMu sync.Mutex
}

func (c *Client) write(frameType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(frameType, data)
}

// Envelope is the server->client wire format.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub manages all active WebSocket connections and their room membership.
// It implements Broadcaster; delivery is best-effort per connection and a
// write failure only drops that connection, never the triggering request.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client            // conn id -> client
	userConns map[uint]map[string]*Client   // user id -> conn id -> client
	rooms     map[string]map[string]*Client // room -> conn id -> client

	pingInterval time.Duration
	pongTimeout  time.Duration
	done         chan struct{}
}

func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[string]*Client),
		userConns:    make(map[uint]map[string]*Client),
		rooms:        make(map[string]map[string]*Client),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
		done:         make(chan struct{}),
	}
	go hub.healthChecker()
	return hub
}

// Register adds a connection and returns its client handle. The caller is
// responsible for joining rooms (the join set is recomputed per connection,
// never cached across sessions).
func (h *Hub) Register(userID uint, conn *websocket.Conn) *Client {
	client := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Conn:     conn,
		LastPong: time.Now(),
	}

	conn.SetPongHandler(func(appData string) error {
		h.mu.Lock()
		if c, ok := h.clients[client.ID]; ok {
			c.LastPong = time.Now()
		}
		h.mu.Unlock()
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.mu.Lock()
	h.clients[client.ID] = client
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[string]*Client)
	}
	h.userConns[userID][client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	go h.pingRoutine(client)

	log.Printf("User %d connected (conn=%s, total=%d)", userID, client.ID, total)
	return client
}

// Unregister removes a connection from the hub and every room it joined.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if ok {
		delete(h.clients, clientID)
		if conns := h.userConns[client.UserID]; conns != nil {
			delete(conns, clientID)
			if len(conns) == 0 {
				delete(h.userConns, client.UserID)
			}
		}
		for room, members := range h.rooms {
			delete(members, clientID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		log.Printf("User %d disconnected (conn=%s, total=%d)", client.UserID, clientID, total)
	}
}

// Join adds one connection to a room.
func (h *Hub) Join(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][clientID] = client
}

// JoinUser adds every live connection of a user to a room. Called when a user
// is added to a chat mid-session.
func (h *Hub) JoinUser(userID uint, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.userConns[userID] {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[string]*Client)
		}
		h.rooms[room][id] = client
	}
}

// LeaveUser removes every live connection of a user from a room.
func (h *Hub) LeaveUser(userID uint, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	for id := range h.userConns[userID] {
		delete(members, id)
	}
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Emit broadcasts an event to every connection in a room. Failed writes drop
// the connection; they are never surfaced to the caller.
func (h *Hub) Emit(room, event string, payload any) {
	data, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s for room %s: %v", event, room, err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for _, client := range h.rooms[room] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.write(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending %s to user %d: %v", event, client.UserID, err)
			h.Unregister(client.ID)
		}
	}
}

// IsOnline reports whether a user holds at least one live connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the background health checker.
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) pingRoutine(client *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.mu.RLock()
			_, exists := h.clients[client.ID]
			h.mu.RUnlock()
			if !exists {
				return
			}
			client.writeMu.Lock()
			err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			client.writeMu.Unlock()
			if err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client.ID)
				return
			}
		}
	}
}

func (h *Hub) healthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.mu.RLock()
			dead := make([]string, 0)
			now := time.Now()
			for id, client := range h.clients {
				if now.Sub(client.LastPong) > h.pongTimeout {
					dead = append(dead, id)
				}
			}
			h.mu.RUnlock()

			for _, id := range dead {
				log.Printf("Removing dead connection %s (no pong received)", id)
				h.Unregister(id)
			}
		}
	}
}
