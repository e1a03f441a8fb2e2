package websocket

import (
	"sync"
)

// Room groups every open connection of one user: each browser tab or device.
type Room struct {
	UserID  string
	Clients map[string]*Client // map[clientID] -> *Client
	mu      sync.RWMutex
}

func NewRoom(userID string) *Room {
	return &Room{
		UserID:  userID,
		Clients: make(map[string]*Client),
	}
}

func (r *Room) AddClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clients[c.ID] = c
}

// RemoveClient reports whether the room is now empty.
func (r *Room) RemoveClient(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Clients, c.ID)
	return len(r.Clients) == 0
}

// Broadcast queues the frame on every client; slow clients are skipped.
func (r *Room) Broadcast(message []byte) (dropped []*Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.Clients {
		if !c.enqueue(message) {
			dropped = append(dropped, c)
		}
	}
	return dropped
}

func (r *Room) GetUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Clients)
}
