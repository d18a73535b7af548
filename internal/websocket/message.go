package websocket

import (
	"encoding/json"
	"time"
)

// Message types sent to clients.
const (
	TypeConnection      = "connection"
	TypeProgressUpdated = "progress:updated"
	TypeError           = "error"
)

// Message is the envelope of every frame the server writes.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// inbound is what clients may send. Anything else is ignored.
type inbound struct {
	Type string `json:"type"`
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return json.Marshal(msg)
}
