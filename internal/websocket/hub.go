// Package websocket pushes row changes, notifications and presence to
// connected clients over github.com/coder/websocket.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
)

// Hub maintains the set of active clients and routes messages to them.
type Hub struct {
	// Registered clients by user ID for targeted messaging
	clients map[string]map[*Client]struct{}

	// All clients for broadcasting
	allClients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicMessage
	unicast    chan *UnicastMessage

	mu sync.RWMutex

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handlers map[string]MessageHandler

	rateLimitConfig RateLimitConfig

	presence atomic.Pointer[PresenceManager]
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	// MaxMessagesPerSecond per client
	MaxMessagesPerSecond int
	// BurstSize allows short bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

// UnicastMessage is a message targeted at a specific user
type UnicastMessage struct {
	UserID  string
	Message *Message
}

// topicMessage is a broadcast limited to clients that want topic
type topicMessage struct {
	topic   string
	message *Message
}

// MessageHandler processes incoming messages of a specific type
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		broadcast:       make(chan *topicMessage, 256),
		unicast:         make(chan *UnicastMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler registers a handler for a specific message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// GetHandler returns the handler for a message type
func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// SetPresenceManager attaches presence tracking
func (h *Hub) SetPresenceManager(pm *PresenceManager) {
	h.presence.Store(pm)
}

func (h *Hub) touch(userID string) {
	if pm := h.presence.Load(); pm != nil {
		pm.Heartbeat(userID)
	}
}

// Start runs the hub loop in a goroutine
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.Run()
	}()
}

// Run is the hub's main event loop; it returns after Shutdown
func (h *Hub) Run() {
	logger.Log.Info("WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case tm := <-h.broadcast:
			h.broadcastMessage(tm)

		case unicast := <-h.unicast:
			h.sendToUser(unicast.UserID, unicast.Message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	active := h.metrics.ActiveConnections.Add(1)
	metrics.Get().WebSocketConnections.Set(float64(active))

	logger.Log.Debug("Client connected", logger.WithUserID(client.UserID), zap.Int64("active", active))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)
	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
			if pm := h.presence.Load(); pm != nil {
				go pm.SetOffline(client.UserID)
			}
		}
	}
	client.closeSend()

	active := h.metrics.ActiveConnections.Add(-1)
	metrics.Get().WebSocketConnections.Set(float64(active))

	logger.Log.Debug("Client disconnected", logger.WithUserID(client.UserID), zap.Int64("active", active))
}

// deliver queues data on one client; a full buffer drops the client
func (h *Hub) deliver(client *Client, data []byte, msgType string) {
	select {
	case client.send <- data:
		h.metrics.MessagesSent.Add(1)
		metrics.Get().WebSocketMessages.WithLabelValues("out", msgType).Inc()
	default:
		h.metrics.ConnectionsDropped.Add(1)
		go h.Unregister(client)
	}
}

func (h *Hub) broadcastMessage(tm *topicMessage) {
	data, err := json.Marshal(tm.message)
	if err != nil {
		logger.Log.Warn("Error marshaling broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.allClients {
		if client.Wants(tm.topic) {
			h.deliver(client, data, tm.message.Type)
		}
	}
}

func (h *Hub) sendToUser(userID string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Warn("Error marshaling unicast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		h.deliver(client, data, message.Type)
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message *Message) {
	h.BroadcastTopic("", message)
}

// BroadcastTopic sends a message to clients whose subscription covers topic
func (h *Hub) BroadcastTopic(topic string, message *Message) {
	select {
	case h.broadcast <- &topicMessage{topic: topic, message: message}:
	case <-h.ctx.Done():
	}
}

// SendToUser sends a message to a specific user (all their connections)
func (h *Hub) SendToUser(userID string, message *Message) {
	select {
	case h.unicast <- &UnicastMessage{UserID: userID, Message: message}:
	case <-h.ctx.Done():
	}
}

// PublishChange implements events.Publisher. Private tables reach only the
// owning user; the rest are broadcast to subscribers of the table.
func (h *Hub) PublishChange(event events.ChangeEvent) {
	msg := NewMessage(MessageTypeRowChange, event)
	if event.Private() {
		if event.UserID == "" {
			logger.Log.Warn("Dropping private row change without owner", zap.String("table", event.Table))
			return
		}
		h.SendToUser(event.UserID, msg)
		return
	}
	h.BroadcastTopic(event.Table, msg)
}

// PushNotification sends a delivered notification to the recipient's
// connections. It reports whether the user had any.
func (h *Hub) PushNotification(n models.Notification) bool {
	if !h.IsUserOnline(n.UserID) {
		return false
	}
	var data map[string]interface{}
	if n.Data != "" {
		_ = json.Unmarshal([]byte(n.Data), &data)
	}
	h.SendToUser(n.UserID, NewMessage(MessageTypeNotification, NotificationPayload{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		Data:      data,
		CreatedAt: n.CreatedAt.UnixMilli(),
	}))
	return true
}

// PushUnreadCount sends the user's unread notification count
func (h *Hub) PushUnreadCount(userID string, unread int64) {
	h.SendToUser(userID, NewMessage(MessageTypeNotificationCount, NotificationCountPayload{UnreadCount: unread}))
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetUserConnectionCount returns the number of connections for a user
func (h *Hub) GetUserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// GetOnlineUsers returns a list of all online user IDs
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// String implements Stringer for MetricsSnapshot
func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the hub loop and closes every connection
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("Initiating WebSocket hub shutdown")
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))
	closed := len(h.allClients)
	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
		}
		client.closeSend()
	}

	h.clients = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})
	h.metrics.ActiveConnections.Store(0)
	metrics.Get().WebSocketConnections.Set(0)

	logger.Log.Info("Closed connections during shutdown", zap.Int("count", closed))
}

// SetRateLimitConfig updates the rate limiting configuration
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}

var _ events.Publisher = (*Hub)(nil)
