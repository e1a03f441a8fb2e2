package tcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"lecturehub/internal/shared"
)

// ProgressRepository is what connections write through (the hybrid repository in production).
type ProgressRepository interface {
	SaveProgress(ctx context.Context, u shared.ProgressUpdate) (shared.Progress, error)
	SavePosition(ctx context.Context, userID, videoID, courseID string, position float64) (shared.Progress, error)
	GetProgress(ctx context.Context, userID, videoID string) (*shared.Progress, error)
}

// TokenValidator resolves an access token into a user id and username.
type TokenValidator interface {
	ValidateToken(token string) (userID, username string, err error)
}

type ConnectionManager struct {
	clients      map[string]*ClientConnection // key: client ID
	mu           sync.RWMutex
	logger       *slog.Logger
	progressRepo ProgressRepository
	auth         TokenValidator
}

func NewConnectionManager(progressRepo ProgressRepository, auth TokenValidator, logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		clients:      make(map[string]*ClientConnection),
		logger:       logger,
		progressRepo: progressRepo,
		auth:         auth,
	}
}

func (m *ConnectionManager) AddConnection(client *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.ID] = client
	m.logger.Info("client_added", "client_id", client.ID)
}

func (m *ConnectionManager) RemoveConnection(client *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, client.ID)
	m.logger.Info("client_removed", "client_id", client.ID, "user_id", client.UserID())
}

func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *ConnectionManager) CloseAllConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, client := range m.clients {
		client.Close()
		m.logger.Info("client_connection_closed", "client_id", id)
	}
	m.clients = make(map[string]*ClientConnection)
}

func (m *ConnectionManager) BroadcastSystemMessage(text string) {
	payload, err := json.Marshal(Reply{Type: TypeSystem, Message: text})
	if err != nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.clients {
		if err := c.Send(payload); err != nil {
			m.logger.Warn("failed_to_send_broadcast", "client_id", id, "error", err.Error())
		}
	}
}

// BroadcastToUser sends to every authenticated connection of userID except the sender.
func (m *ConnectionManager) BroadcastToUser(userID, exceptClientID string, msg []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sent := 0
	for id, c := range m.clients {
		if id == exceptClientID || c.UserID() != userID {
			continue
		}
		if err := c.Send(msg); err != nil {
			m.logger.Warn("failed_to_send_broadcast", "client_id", id, "error", err.Error())
			continue
		}
		sent++
	}
	return sent
}
