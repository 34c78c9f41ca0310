package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
)

const broadcastQueue = 64

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

type outbound struct {
	eventType string
	payload   []byte
	// sessionID restricts delivery to the connections of one session.
	sessionID string
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	return &Hub{
		broadcast:  make(chan outbound, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in the background. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.context()
	infrastructure.RecordWebSocketClient(ctx, h.metrics, 1)
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	payload, err := encode(EventConnection, map[string]interface{}{
		"status":    "connected",
		"client_id": client.id,
	}, client.traceID)
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	ctx := client.context()
	infrastructure.RecordWebSocketClient(ctx, h.metrics, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if msg.sessionID != "" && client.sessionID != msg.sessionID {
			continue
		}
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, client := range clients {
		select {
		case client.send <- msg.payload:
			delivered++
		default:
			// A client that cannot keep up is dropped rather than stalling the hub.
			dropped++
			h.mu.Lock()
			removed := h.clients[client]
			if removed {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if removed {
				infrastructure.RecordWebSocketClient(client.context(), h.metrics, -1)
			}
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(delivered)
	h.droppedClients += int64(dropped)
	h.mu.Unlock()

	infrastructure.RecordWebSocketBroadcast(context.Background(), h.metrics, msg.eventType, delivered, dropped)
	h.logger.Debug("Broadcast delivered",
		slog.String("type", msg.eventType),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

// Broadcast sends an event to every connected client. It never blocks: when
// the queue is full or the hub is stopped the event is dropped and logged.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	h.enqueue(eventType, data, "")
}

// SendToSession sends an event only to the connections bound to sessionID.
// An empty session id matches nobody, so the event is dropped.
func (h *Hub) SendToSession(sessionID, eventType string, data interface{}) {
	if sessionID == "" {
		h.logger.Debug("Event without session dropped", slog.String("type", eventType))
		return
	}
	h.enqueue(eventType, data, sessionID)
}

func (h *Hub) enqueue(eventType string, data interface{}, sessionID string) {
	payload, err := encode(eventType, data, "")
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		h.logger.Debug("Hub not running, event dropped", slog.String("type", eventType))
		return
	}

	select {
	case h.broadcast <- outbound{eventType: eventType, payload: payload, sessionID: sessionID}:
	default:
		h.logger.Warn("Broadcast queue full, event dropped", slog.String("type", eventType))
	}
}

func encode(eventType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   traceID,
	})
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub.
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
	return len(h.clients)
}

// Stats returns counters for the health endpoint.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}

// Stop stops the hub and closes every client. Calling it twice is a no-op.
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

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
