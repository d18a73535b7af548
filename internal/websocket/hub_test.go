package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/shared/testutil"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(t *testing.T, hub *Hub, identity string) *Client {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewClient(hub, newMockConnection(), ClientOptions{Identity: identity, Logger: logger})
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_RegisterSendsConnectionMessage(t *testing.T) {
	hub := newTestHub(t)
	c := newTestClient(t, hub, "ada@example.com")

	hub.Register(c)

	msg := receive(t, c)
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.IdentityClientCount("ada@example.com"))
}

func TestHub_PublishTargetsIdentity(t *testing.T) {
	hub := newTestHub(t)
	ada := newTestClient(t, hub, "ada@example.com")
	bob := newTestClient(t, hub, "bob@example.com")
	anon := newTestClient(t, hub, "")
	for _, c := range []*Client{ada, bob, anon} {
		hub.Register(c)
		receive(t, c)
	}

	ctx := context.Background()
	hub.Publish(ctx, "ada@example.com", TypeProgressUpdated, map[string]int{"streakCount": 3})
	hub.Publish(ctx, "bob@example.com", TypeProgressUpdated, map[string]int{"streakCount": 1})
	hub.Publish(ctx, "", TypeProgressUpdated, map[string]int{"streakCount": 7})

	tests := []struct {
		name   string
		client *Client
		streak float64
	}{
		{"ada", ada, 3},
		{"bob", bob, 1},
		{"anonymous", anon, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := receive(t, tt.client)
			assert.Equal(t, TypeProgressUpdated, msg.Type)
			data, ok := msg.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.streak, data["streakCount"])
			assert.Empty(t, tt.client.send)
		})
	}
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	hub := newTestHub(t)
	clients := []*Client{
		newTestClient(t, hub, "a@example.com"),
		newTestClient(t, hub, "b@example.com"),
	}
	for _, c := range clients {
		hub.Register(c)
		receive(t, c)
	}

	hub.Broadcast(context.Background(), TypeError, "data reloaded")

	for _, c := range clients {
		msg := receive(t, c)
		assert.Equal(t, TypeError, msg.Type)
		assert.Equal(t, "data reloaded", msg.Data)
	}
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	hub := newTestHub(t)
	c := newTestClient(t, hub, "slow@example.com")
	hub.Register(c)

	for i := 0; i < sendBuffer+1; i++ {
		hub.Publish(context.Background(), "slow@example.com", TypeProgressUpdated, i)
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), hub.Stats()["messages_dropped"])
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := newTestHub(t)
	c := newTestClient(t, hub, "")
	hub.Register(c)
	receive(t, c)

	hub.Unregister(c)
	hub.Unregister(c)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())
}

func TestServe_PumpsMessagesUntilStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	hub.Start()

	conn := newMockConnection()
	client := NewClient(hub, conn, ClientOptions{Identity: "ada@example.com", TraceID: "trace-1", Logger: logger})
	Serve(hub, client)

	conn.reads <- []byte(`{"type":"heartbeat"}`)
	hub.Publish(context.Background(), "ada@example.com", TypeProgressUpdated, map[string]interface{}{"completedTitles": []string{"Two Sum"}})

	require.Eventually(t, func() bool {
		for _, m := range conn.Written() {
			if m.Type == websocket.TextMessage && strings.Contains(string(m.Data), TypeProgressUpdated) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, conn.HasPongHandler, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(maxMessageSize), conn.ReadLimit())

	hub.Stop()
	require.Eventually(t, conn.IsClosed, 2*time.Second, 10*time.Millisecond)
}

func TestNewClient_KeepaliveDefaults(t *testing.T) {
	hub := NewHub(nil, nil)

	c := NewClient(hub, newMockConnection(), ClientOptions{PingPeriod: 2 * time.Minute, PongWait: time.Minute})
	assert.Equal(t, time.Minute, c.pongWait)
	assert.Equal(t, 54*time.Second, c.pingPeriod)

	c = NewClient(hub, newMockConnection(), ClientOptions{})
	assert.Equal(t, defaultPongWait, c.pongWait)
	assert.Equal(t, "127.0.0.1:50000", c.remoteAddr)
	assert.NotEmpty(t, c.ID())
	assert.Empty(t, c.Identity())
}
