package websocket

import (
	"net/http"
	"slices"

	"lecturehub/internal/microservices/http-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// NewUpgrader accepts requests without an Origin header or from one of allowed.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
		},
	}
}

// WSHandler upgrades an authenticated request into a progress subscription.
func WSHandler(hub *Hub, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response
			hub.logger.Warn("ws_upgrade_failed", "user_id", userID, "error", err)
			return
		}

		client := NewClient(uuid.NewString(), userID, conn, hub)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
