package tcp

import (
	"encoding/json"
	"time"
)

// Inbound message types.
const (
	TypeAuth           = "auth"
	TypeProgressUpdate = "progress_update"
	TypePositionUpdate = "position_update"
	TypeProgressGet    = "progress_get"
)

// Outbound message types.
const (
	TypeAuthOK            = "auth_ok"
	TypeProgressAck       = "progress_ack"
	TypeProgress          = "progress"
	TypeProgressBroadcast = "progress_broadcast"
	TypeError             = "error"
	TypeSystem            = "system"
)

// Message is one newline-terminated JSON frame.
type Message struct {
	Type string          `json:"type"` // basic routing based on type field
	Data json.RawMessage `json:"data,omitempty"`
}

type AuthData struct {
	Token string `json:"token"`
}

// ProgressData is a sample pushed by a player. The user comes from the authenticated connection.
type ProgressData struct {
	VideoID        string  `json:"video_id"`
	CourseID       string  `json:"course_id"`
	Progress       float64 `json:"progress"`
	WatchedSeconds int     `json:"watched_seconds"`
	LastPosition   float64 `json:"last_position"`
}

type PositionData struct {
	VideoID      string  `json:"video_id"`
	CourseID     string  `json:"course_id"`
	LastPosition float64 `json:"last_position"`
}

type GetData struct {
	VideoID string `json:"video_id"`
}

// Reply is what the server writes back.
type Reply struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func newReply(typ string, data any) Reply {
	return Reply{Type: typ, Data: data, Timestamp: time.Now().Unix()}
}

func errorReply(msg string) Reply {
	return Reply{Type: TypeError, Message: msg, Timestamp: time.Now().Unix()}
}
