package websocket

import (
	"errors"
	"sync"
	"time"
)

var errConnClosed = errors.New("connection closed")

type mockMessage struct {
	Type int
	Data []byte
}

// mockConnection records writes and serves reads from a channel until closed.
type mockConnection struct {
	mu      sync.Mutex
	written []mockMessage
	closed  bool

	reads     chan []byte
	closeOnce sync.Once
	done      chan struct{}

	readLimit   int64
	pongHandler func(string) error
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		reads: make(chan []byte, 8),
		done:  make(chan struct{}),
	}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errConnClosed
	}
	m.written = append(m.written, mockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.reads:
		return 1, data, nil
	case <-m.done:
		return 0, nil, errConnClosed
	}
}

func (m *mockConnection) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
	})
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConnection) ReadLimit() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readLimit
}

func (m *mockConnection) HasPongHandler() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pongHandler != nil
}
func (m *mockConnection) RemoteAddr() string { return "127.0.0.1:50000" }

func (m *mockConnection) Written() []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockMessage, len(m.written))
	copy(out, m.written)
	return out
}

func (m *mockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
