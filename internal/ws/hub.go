package ws

import (
	"log"
	"sync"
)

// Hub is the explicit set of (connection, room) memberships. Rooms are
// named broadcast groups; membership is connection-scoped, so a user
// with several connections holds independent memberships per
// connection.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

// Join subscribes the client to a room. Idempotent.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
}

// Leave unsubscribes the client from a room. Idempotent.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

func (h *Hub) leaveLocked(room string, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// LeaveAll drops every membership of the client.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.leaveLocked(room, c)
	}
}

// InRoom reports whether the client is subscribed to the room.
func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][c]
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers an event to every connection in the room.
func (h *Hub) Broadcast(room, event string, data any) {
	h.broadcast(room, nil, event, data)
}

// BroadcastExcept delivers an event to every connection in the room
// except one, typically the originator.
func (h *Hub) BroadcastExcept(room string, skip *Client, event string, data any) {
	h.broadcast(room, skip, event, data)
}

func (h *Hub) broadcast(room string, skip *Client, event string, data any) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != skip {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.trySend(payload) {
			// Slow consumer: drop the connection, its read pump will
			// clean up memberships.
			log.Printf("websocket send buffer full, closing conn %s", c.connID)
			c.drop()
		}
	}
}
