package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"lecturehub/internal/shared"
)

type EventType string

const (
	TypeProgressChanged EventType = "progress_changed" // a record of the subscriber changed
	TypeSystem          EventType = "system"           // server notice, e.g. shutdown
)

// Event is the only frame the server writes to subscribers.
type Event struct {
	Type      EventType        `json:"type"`
	Progress  *shared.Progress `json:"progress,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewProgressEvent(p shared.Progress) *Event {
	return &Event{
		Type:      TypeProgressChanged,
		Progress:  &p,
		Timestamp: time.Now().UTC(),
	}
}

func NewSystemEvent(text string) *Event {
	return &Event{
		Type:      TypeSystem,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON: marshal Event to a text frame
func (e *Event) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("event_marshal_failed", "type", e.Type, "error", err)
		return nil, err
	}
	return data, nil
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
