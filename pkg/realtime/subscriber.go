// Package realtime keeps a websocket subscription to the MacChain server
// open, reconnecting with backoff and dispatching pushed messages.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/macchain/backend/pkg/client"
	"github.com/macchain/backend/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message types pushed or accepted by the server
const (
	TypePing              = "ping"
	TypePong              = "pong"
	TypeSubscribe         = "subscribe"
	TypeRowChange         = "row_change"
	TypeNotification      = "notification"
	TypeNotificationCount = "notification_count"
	TypePresence          = "presence"
	TypeError             = "error"
)

const wsPath = "/api/v1/ws"

// Message is one websocket frame
type Message struct {
	Type      string              `json:"type"`
	Payload   jsoniter.RawMessage `json:"payload,omitempty"`
	ID        string              `json:"id,omitempty"`
	ReplyTo   string              `json:"reply_to,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Decode unmarshals the payload into v
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Handler receives dispatched messages on the read goroutine
type Handler func(msg Message)

// ReconnectHook runs after a dropped connection is re-established and
// resubscribed. ctx ends with that connection.
type ReconnectHook func(ctx context.Context)

// Config holds subscriber settings
type Config struct {
	// URL is the API base URL; http and https map to ws and wss
	URL      string
	Token    string
	ClientID string
	// Tables limits row changes; empty receives every table
	Tables       []string
	PingInterval time.Duration
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	// MaxReconnects stops reconnecting after that many failed dials; 0 never stops
	MaxReconnects int
	HTTPClient    *http.Client
}

// DefaultConfig returns the production timings for baseURL
func DefaultConfig(baseURL, token string) Config {
	return Config{
		URL:          baseURL,
		Token:        token,
		PingInterval: 30 * time.Second,
		BaseDelay:    2 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// ConnectionState is the subscriber's link status
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Stats holds connection counters
type Stats struct {
	MessagesReceived int64
	MessagesSent     int64
	ReconnectCount   int
	LastError        string
	ConnectedAt      time.Time
}

// Subscriber is a self-healing websocket client
type Subscriber struct {
	cfg Config

	mu          sync.RWMutex
	conn        *websocket.Conn
	state       ConnectionState
	stats       Stats
	handlers    map[string][]Handler
	onReconnect []ReconnectHook

	cancel context.CancelFunc
	done   chan struct{}
	rng    *rand.Rand
}

// NewSubscriber fills unset timings from DefaultConfig
func NewSubscriber(cfg Config) *Subscriber {
	def := DefaultConfig(cfg.URL, cfg.Token)
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	return &Subscriber{
		cfg:      cfg,
		handlers: make(map[string][]Handler),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// On registers fn for a message type. An empty type receives everything.
func (s *Subscriber) On(msgType string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[msgType] = append(s.handlers[msgType], fn)
}

// OnReconnect registers fn to run in the background after every successful
// reconnect. Messages missed while offline are not replayed, so this is the
// place to resync.
func (s *Subscriber) OnReconnect(fn ReconnectHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnect = append(s.onReconnect, fn)
}

// State returns the current connection state
func (s *Subscriber) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a copy of the counters
func (s *Subscriber) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Connect dials once and returns the dial error, then keeps the
// connection alive in the background until ctx ends or Close is called.
func (s *Subscriber) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("already connected")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.setState(StateDisconnected, err)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(runCtx, cancel, done, conn)
	return nil
}

// Close stops the subscriber and waits for its goroutines
func (s *Subscriber) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Debug("Realtime subscriber closed")
}

// Send writes a message on the current connection
func (s *Subscriber) Send(ctx context.Context, msgType string, payload interface{}) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return errors.New("not connected")
	}
	return s.write(ctx, conn, msgType, payload)
}

func (s *Subscriber) write(ctx context.Context, conn *websocket.Conn, msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: raw, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.stats.MessagesSent++
	s.mu.Unlock()
	return nil
}

// run owns one Connect call. When it returns, by Close or by giving up on
// reconnecting, the subscriber is reset so Connect can be called again.
func (s *Subscriber) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, conn *websocket.Conn) {
	defer func() {
		cancel()
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		close(done)
	}()
	reconnected := false
	for {
		err := s.serve(ctx, conn, reconnected)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Realtime connection lost", "error", err)
		s.setState(StateReconnecting, err)

		conn = s.reconnect(ctx)
		if conn == nil {
			return
		}
		reconnected = true
	}
}

// serve runs the read and ping loops until either fails. Reconnect hooks
// start once the subscription is back in place.
func (s *Subscriber) serve(ctx context.Context, conn *websocket.Conn, reconnected bool) error {
	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.stats.ConnectedAt = time.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.CloseNow()
	}()

	if err := s.write(ctx, conn, TypeSubscribe, map[string][]string{"tables": s.cfg.Tables}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx, conn) })
	g.Go(func() error { return s.pingLoop(gctx, conn) })
	if reconnected {
		s.mu.RLock()
		hooks := append([]ReconnectHook(nil), s.onReconnect...)
		s.mu.RUnlock()
		for _, hook := range hooks {
			g.Go(func() error {
				hook(gctx)
				return nil
			})
		}
	}
	return g.Wait()
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("Dropping malformed realtime message", "error", err)
			continue
		}
		s.mu.Lock()
		s.stats.MessagesReceived++
		handlers := append(append([]Handler(nil), s.handlers[msg.Type]...), s.handlers[""]...)
		s.mu.Unlock()

		for _, h := range handlers {
			h(msg)
		}
	}
}

func (s *Subscriber) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			payload := map[string]int64{"client_time": time.Now().UnixMilli()}
			if err := s.write(ctx, conn, TypePing, payload); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// reconnect dials with exponential backoff and jitter. It returns nil when
// ctx ends or the attempt limit is reached.
func (s *Subscriber) reconnect(ctx context.Context) *websocket.Conn {
	delay := s.cfg.BaseDelay
	for attempt := 1; ; attempt++ {
		if s.cfg.MaxReconnects > 0 && attempt > s.cfg.MaxReconnects {
			logger.Error("Max reconnection attempts reached", "attempts", s.cfg.MaxReconnects)
			return nil
		}

		wait := delay + time.Duration(s.rng.Int63n(int64(delay)/4+1))
		logger.Debug("Reconnecting realtime", "attempt", attempt, "wait", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}

		conn, err := s.dial(ctx)
		if err == nil {
			s.mu.Lock()
			s.stats.ReconnectCount++
			s.mu.Unlock()
			logger.Info("Realtime reconnected", "attempt", attempt)
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		s.setState(StateReconnecting, err)
		delay *= 2
		if delay > s.cfg.MaxDelay {
			delay = s.cfg.MaxDelay
		}
	}
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := endpoint(s.cfg.URL, s.cfg.Token)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if s.cfg.ClientID != "" {
		header.Set(client.ClientIDHeader, s.cfg.ClientID)
	}
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, u, &websocket.DialOptions{
		HTTPClient: s.cfg.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

func (s *Subscriber) setState(state ConnectionState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if err != nil {
		s.stats.LastError = err.Error()
	}
}

// endpoint turns an API base URL into the websocket URL with the token
func endpoint(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, wsPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + wsPath
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
