package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"companywise/internal/infrastructure"
)

const (
	writeWait = 10 * time.Second

	defaultPongWait = 60 * time.Second

	// Clients only send heartbeats, so frames stay small.
	maxMessageSize = 512

	sendBuffer = 32
)

// ClientOptions tunes keepalive timing. Zero values fall back to defaults.
type ClientOptions struct {
	Identity   string
	TraceID    string
	PingPeriod time.Duration
	PongWait   time.Duration
	Logger     *slog.Logger
}

// Client is a middleman between one connection and the hub.
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	identity    string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	pingPeriod  time.Duration
	pongWait    time.Duration

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewClient creates a client for conn subscribed under opts.Identity.
func NewClient(hub *Hub, conn Connection, opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = infrastructure.LoggerWithContext(infrastructure.WithTraceID(context.Background(), opts.TraceID))
	}
	pongWait := opts.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := opts.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}

	id := uuid.NewString()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		identity:    opts.Identity,
		traceID:     opts.TraceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		pingPeriod:  pingPeriod,
		pongWait:    pongWait,
		logger:      infrastructure.WithComponent(logger, "websocket.client").With(slog.String("client_id", id)),
	}
}

// ID returns the client's connection id.
func (c *Client) ID() string { return c.id }

// Identity returns the identity the client is subscribed under.
func (c *Client) Identity() string { return c.identity }

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump consumes client frames until the connection fails, then
// unregisters the client.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.logger.DebugContext(ctx, "Read pump stopped",
			slog.Int64("messages_received", c.messagesReceived))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				infrastructure.WithError(c.logger, err).WarnContext(ctx, "Unexpected WebSocket close")
			}
			return
		}
		c.messagesReceived++

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.DebugContext(ctx, "Ignoring malformed client frame")
			continue
		}
		if msg.Type == "heartbeat" {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		}
	}
}

// WritePump writes hub messages and keepalive pings to the connection. It
// returns when the hub closes the send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	ctx := c.context()
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.DebugContext(ctx, "Write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				infrastructure.WithError(c.logger, err).WarnContext(ctx, "Error writing message")
				return
			}
			c.messagesSent++

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				infrastructure.WithError(c.logger, err).DebugContext(ctx, "Ping failed")
				return
			}
		}
	}
}

// Serve registers the client and starts its pumps. It returns immediately.
func Serve(hub *Hub, client *Client) {
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
