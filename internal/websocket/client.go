package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client represents a single WebSocket connection
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	// Buffered channel of outbound messages
	send chan []byte

	ConnectedAt time.Time
	LastPingAt  time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	// row-change tables this client asked for; empty means all
	tables   map[string]struct{}
	presence bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	closed     bool
	sendClosed bool
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	config := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		tables:      map[string]struct{}{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				logger.Log.Debug("Client disconnected normally", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("Read error for client", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Log.Debug("WebSocket JSON parse error", logger.WithUserID(c.UserID), zap.Error(err))
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}
		metrics.Get().WebSocketMessages.WithLabelValues("in", message.Type).Inc()

		c.handleMessage(&message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutdown")
			return

		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()

			if err != nil {
				logger.Log.Warn("Write error for client", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.LastPingAt = time.Now()
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()

			if err != nil {
				logger.Log.Debug("Ping failed for client", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

// handleMessage routes incoming messages to appropriate handlers
func (c *Client) handleMessage(message *Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = FlexibleTime{Time: time.Now().UTC()}
	}

	switch message.Type {
	case MessageTypePing, "heartbeat":
		c.handlePing(message)
		return
	case MessageTypeAuth:
		_ = c.Send(NewReply(message, MessageTypeAuth, AuthPayload{UserID: c.UserID, Status: "authenticated"}))
		return
	case MessageTypeSubscribe:
		c.handleSubscribe(message)
		return
	}

	if handler, ok := c.hub.GetHandler(message.Type); ok {
		if err := handler(c, message); err != nil {
			logger.Log.Warn("Handler error", zap.String("type", message.Type), zap.Error(err))
			c.SendError("handler_error", fmt.Sprintf("Failed to process %s", message.Type))
		}
		return
	}

	c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
}

// handlePing responds to ping messages with pong
func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	pong := NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    serverTime - ping.ClientTime,
	})

	// Best-effort pong response - connection may be closing
	_ = c.Send(pong)
	c.hub.touch(c.UserID)
}

func (c *Client) handleSubscribe(message *Message) {
	var sub SubscribePayload
	if err := message.ParsePayload(&sub); err != nil {
		c.SendError("invalid_payload", "subscribe expects {tables: []}")
		return
	}
	c.Subscribe(sub.Tables)
	_ = c.Send(NewReply(message, MessageTypeSubscribe, SubscribePayload{Tables: c.Subscriptions()}))
}

// Subscribe replaces the client's table filter
func (c *Client) Subscribe(tables []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]struct{}, len(tables))
	c.presence = false
	for _, t := range tables {
		if t == TopicPresence {
			c.presence = true
			continue
		}
		c.tables[t] = struct{}{}
	}
}

// Subscriptions lists the explicit subscriptions, sorted
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables)+1)
	for t := range c.tables {
		out = append(out, t)
	}
	if c.presence {
		out = append(out, TopicPresence)
	}
	sort.Strings(out)
	return out
}

// Wants reports whether a broadcast on topic should reach this client
func (c *Client) Wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if topic == TopicPresence {
		return c.presence
	}
	if topic == "" || len(c.tables) == 0 {
		return true
	}
	_, ok := c.tables[topic]
	return ok
}

// Send sends a message to this client
func (c *Client) Send(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.sendClosed {
		return fmt.Errorf("client connection closed")
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("client shutting down")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// closeSend closes the outbound channel once; the hub owns this
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// GetInfo returns client information
func (c *Client) GetInfo() ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientInfo{
		UserID:      c.UserID,
		Username:    c.Username,
		ConnectedAt: c.ConnectedAt,
		LastPingAt:  c.LastPingAt,
		RemoteAddr:  c.RemoteAddr,
		UserAgent:   c.UserAgent,
	}
}

// ClientInfo represents public client information
type ClientInfo struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPingAt  time.Time `json:"last_ping_at"`
	RemoteAddr  string    `json:"remote_addr"`
	UserAgent   string    `json:"user_agent"`
}
