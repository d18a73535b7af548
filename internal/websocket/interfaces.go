package websocket

import (
	"context"
	"time"
)

// Connection is the subset of *websocket.Conn used by Client, so tests can
// substitute an in-memory connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Publisher delivers a typed message to every client subscribed under an
// identity. The empty identity addresses anonymous clients.
type Publisher interface {
	Publish(ctx context.Context, identity, msgType string, data interface{})
}
