// Package websocket pushes progress changes to every open tab of the owning user.
package websocket

import (
	"context"
	"log/slog"
	"sync"

	"lecturehub/internal/shared"
)

// Hub keeps one room per user. It satisfies service.ProgressPublisher.
type Hub struct {
	rooms  map[string]*Room
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// Register adds c to its user's room. The hub lock is held until c is in the
// room so a concurrent Unregister cannot drop the room in between.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.UserID]
	if !ok {
		room = NewRoom(c.UserID)
		h.rooms[c.UserID] = room
	}
	room.AddClient(c)
	h.mu.Unlock()

	h.logger.Info("ws_client_registered", "client_id", c.ID, "user_id", c.UserID)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.UserID]
	if !ok {
		return
	}
	if room.RemoveClient(c) {
		delete(h.rooms, c.UserID)
	}
	h.logger.Info("ws_client_unregistered", "client_id", c.ID, "user_id", c.UserID)
}

// PublishProgress sends a progress_changed event to the user's subscribers.
// Subscribers too slow to keep up are disconnected.
func (h *Hub) PublishProgress(userID string, p shared.Progress) {
	h.broadcast(userID, NewProgressEvent(p))
}

func (h *Hub) broadcast(userID string, e *Event) {
	h.mu.RLock()
	room, ok := h.rooms[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := e.ToJSON()
	if err != nil {
		return
	}
	for _, c := range room.Broadcast(payload) {
		h.logger.Warn("ws_client_too_slow", "client_id", c.ID, "user_id", userID)
		c.Close()
		h.Unregister(c)
	}
}

// Subscribers returns the number of open connections for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	room, ok := h.rooms[userID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return room.GetUserCount()
}

// Shutdown notifies and closes every subscriber once ctx is done.
func (h *Hub) Shutdown(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	notice, _ := NewSystemEvent("server shutting down").ToJSON()
	for _, room := range rooms {
		room.mu.RLock()
		for _, c := range room.Clients {
			c.enqueue(notice)
			c.Close()
		}
		room.mu.RUnlock()
	}
}
