package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"tasky-chat/internal/models"
)

// Hub maintains active websocket rooms.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	log     *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		log:     log,
	}
}

// Join adds a client to a room. Joining twice is a no-op.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if _, ok := h.members[c]; !ok {
		h.members[c] = make(map[string]struct{})
	}
	h.members[c][room] = struct{}{}
}

// Remove drops a client from every room it joined.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.members[c] {
		if conns, ok := h.rooms[room]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.members, c)
}

// RoomSize reports how many clients are in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// EmitToRoom sends an event to every client in the room. Clients whose send
// buffer is full are disconnected.
func (h *Hub) EmitToRoom(room, event string, payload any) {
	frame, err := json.Marshal(models.ChatEvent{Event: event, Data: payload})
	if err != nil {
		h.log.Error("encode websocket event", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.closed() || c.enqueue(frame) {
			continue
		}
		h.Remove(c)
		h.log.Warn("websocket client too slow, disconnected", "conn_id", c.info.ConnID, "user_id", c.info.UserID, "room", room)
		publishLifecycle(context.Background(), "ws_error", c.info, "send buffer full")
	}
}
