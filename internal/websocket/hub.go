package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"companywise/internal/infrastructure"
)

// Hub tracks connected clients grouped by identity and fans messages out
// to them. Register, unregister and delivery all run on the Run goroutine.
type Hub struct {
	// clients by identity; "" holds anonymous clients
	clients map[string]map[*Client]struct{}

	deliver    chan envelope
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections int64
	messagesSent     int64
	dropped          int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

type envelope struct {
	identity string
	all      bool
	payload  []byte
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		deliver:    make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a new goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client, "closed")

		case env := <-h.deliver:
			h.fanOut(env)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.identity]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.identity] = set
	}
	set[client] = struct{}{}
	h.totalConnections++
	count := h.countLocked()
	h.mu.Unlock()

	ctx := client.context()
	infrastructure.RecordWebSocketConnection(ctx, h.metrics, 1)
	h.logger.InfoContext(ctx, "Client registered",
		slog.String("client_id", client.id),
		slog.Bool("anonymous", client.identity == ""),
		slog.Int("total_clients", count))

	payload, err := encode(Message{
		Type: TypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		TraceID: client.traceID,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.WarnContext(ctx, "Client buffer full, skipping connection message",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) remove(client *Client, reason string) {
	h.mu.Lock()
	set := h.clients[client.identity]
	if _, ok := set[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.identity)
	}
	close(client.send)
	count := h.countLocked()
	h.mu.Unlock()

	ctx := client.context()
	infrastructure.RecordWebSocketConnection(ctx, h.metrics, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", count))
}

func (h *Hub) fanOut(env envelope) {
	h.mu.RLock()
	targets := make([]*Client, 0)
	if env.all {
		for _, set := range h.clients {
			for c := range set {
				targets = append(targets, c)
			}
		}
	} else {
		for c := range h.clients[env.identity] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- env.payload:
			h.mu.Lock()
			h.messagesSent++
			h.mu.Unlock()
		default:
			h.mu.Lock()
			h.dropped++
			h.mu.Unlock()
			h.remove(c, "slow consumer")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for identity, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, identity)
	}
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Publish sends a message to every client of identity.
func (h *Hub) Publish(ctx context.Context, identity, msgType string, data interface{}) {
	h.enqueue(ctx, envelope{identity: identity}, msgType, data)
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data interface{}) {
	h.enqueue(ctx, envelope{all: true}, msgType, data)
}

func (h *Hub) enqueue(ctx context.Context, env envelope, msgType string, data interface{}) {
	payload, err := encode(Message{
		Type:    msgType,
		Data:    data,
		TraceID: infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("type", msgType),
			slog.String("error", err.Error()))
		return
	}
	env.payload = payload

	select {
	case h.deliver <- env:
		infrastructure.RecordWebSocketMessage(ctx, h.metrics, msgType)
	case <-h.quit:
	case <-ctx.Done():
		h.logger.WarnContext(ctx, "Publish abandoned", slog.String("type", msgType))
	}
}

// Register adds a client.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

// IdentityClientCount returns the number of clients subscribed under identity.
func (h *Hub) IdentityClientCount(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[identity])
}

// Stats reports hub counters for the health endpoint.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    h.countLocked(),
		"identities":        len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.dropped,
	}
}

// Stop closes every client and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}
