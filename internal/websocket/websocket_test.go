package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeTokens map[string]*models.User

func (f fakeTokens) ValidateToken(token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

type wireMessage struct {
	Type    string          `json:"type"`
	ReplyTo string          `json:"reply_to"`
	Payload json.RawMessage `json:"payload"`
}

type testServer struct {
	hub      *Hub
	handler  *Handler
	presence *PresenceManager
	url      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hub := NewHub()
	hub.Start()

	handler := NewHandler(hub, fakeTokens{
		"alice-token": {ID: "alice", Username: "alice"},
		"bob-token":   {ID: "bob", Username: "bob"},
	})
	pm := NewPresenceManager(hub, nil, DefaultPresenceConfig())
	handler.SetPresenceManager(pm)

	r := gin.New()
	r.GET("/ws", handler.HandleWebSocket)
	r.GET("/ws/online", handler.HandleOnline)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = handler.Shutdown(ctx)
		srv.Close()
	})

	return &testServer{hub: hub, handler: handler, presence: pm, url: srv.URL}
}

// dial connects as the token's user and consumes the welcome message
func (s *testServer) dial(t *testing.T, token, userID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(s.url, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	welcome := readMessage(t, conn)
	require.Equal(t, MessageTypeSystem, welcome.Type)
	require.Eventually(t, func() bool { return s.hub.IsUserOnline(userID) }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeMessage(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func rowTable(t *testing.T, msg wireMessage) string {
	t.Helper()
	require.Equal(t, MessageTypeRowChange, msg.Type)
	var event struct {
		Table string `json:"table"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	return event.Table
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow(), "Request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestFlexibleTimeAcceptsMillisAndRFC3339(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":1700000000000}`), &msg))
	assert.Equal(t, int64(1700000000000), msg.Timestamp.UnixMilli())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":"2024-03-01T00:00:00Z"}`), &msg))
	assert.Equal(t, 2024, msg.Timestamp.Year())
}

func TestClientWants(t *testing.T) {
	c := &Client{tables: map[string]struct{}{}}

	assert.True(t, c.Wants(events.TableDiscussions))
	assert.False(t, c.Wants(TopicPresence), "presence is opt-in")

	c.Subscribe([]string{events.TableComments, TopicPresence})
	assert.True(t, c.Wants(events.TableComments))
	assert.False(t, c.Wants(events.TableDiscussions))
	assert.True(t, c.Wants(TopicPresence))
	assert.True(t, c.Wants(""), "untargeted broadcasts reach everyone")
	assert.Equal(t, []string{events.TableComments, TopicPresence}, c.Subscriptions())
}

func TestHandshakeRequiresToken(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.url + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(s.url + "/ws?token=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPingPong(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "alice-token", "alice")

	writeMessage(t, conn, map[string]interface{}{
		"type":    "ping",
		"id":      "p1",
		"payload": map[string]interface{}{"client_time": 123},
	})

	pong := readMessage(t, conn)
	assert.Equal(t, MessageTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ReplyTo)

	var payload PongPayload
	require.NoError(t, json.Unmarshal(pong.Payload, &payload))
	assert.Equal(t, int64(123), payload.ClientTime)
	assert.NotZero(t, payload.ServerTime)
}

func TestUnknownMessageType(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "alice-token", "alice")

	writeMessage(t, conn, map[string]interface{}{"type": "dance"})

	msg := readMessage(t, conn)
	require.Equal(t, MessageTypeError, msg.Type)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "unknown_type", payload.Code)
}

func TestSubscribeFiltersRowChanges(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "alice-token", "alice")

	writeMessage(t, conn, map[string]interface{}{
		"type":    "subscribe",
		"id":      "s1",
		"payload": map[string]interface{}{"tables": []string{events.TableComments}},
	})
	reply := readMessage(t, conn)
	require.Equal(t, MessageTypeSubscribe, reply.Type)

	s.hub.PublishChange(events.ChangeEvent{Table: events.TableDiscussions, Event: events.Insert})
	s.hub.PublishChange(events.ChangeEvent{Table: events.TableComments, Event: events.Insert})

	assert.Equal(t, events.TableComments, rowTable(t, readMessage(t, conn)))
}

func TestPrivateChangesReachOnlyOwner(t *testing.T) {
	s := newTestServer(t)
	alice := s.dial(t, "alice-token", "alice")
	bob := s.dial(t, "bob-token", "bob")

	s.hub.PublishChange(events.ChangeEvent{Table: events.TableReadingProgress, Event: events.Insert, UserID: "alice"})
	s.hub.PublishChange(events.ChangeEvent{Table: events.TableReadingProgress, Event: events.Insert})
	s.hub.PublishChange(events.ChangeEvent{Table: events.TableDiscussions, Event: events.Insert})

	// bob sees only the public change
	assert.Equal(t, events.TableDiscussions, rowTable(t, readMessage(t, bob)))

	got := []string{rowTable(t, readMessage(t, alice)), rowTable(t, readMessage(t, alice))}
	assert.ElementsMatch(t, []string{events.TableReadingProgress, events.TableDiscussions}, got)
}

func TestPushNotification(t *testing.T) {
	s := newTestServer(t)

	offline := models.Notification{ID: "n0", UserID: "alice", Type: models.NotificationReadingReminder}
	assert.False(t, s.hub.PushNotification(offline))

	conn := s.dial(t, "alice-token", "alice")
	n := models.Notification{
		ID:        "n1",
		UserID:    "alice",
		Type:      models.NotificationStreakMilestone,
		Title:     "연속 읽기 달성!",
		Message:   "축하합니다! 7일 연속으로 성경을 읽고 있습니다.",
		Priority:  models.PriorityHigh,
		Data:      `{"days":7}`,
		CreatedAt: time.Now(),
	}
	require.True(t, s.hub.PushNotification(n))

	msg := readMessage(t, conn)
	require.Equal(t, MessageTypeNotification, msg.Type)
	var payload NotificationPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "n1", payload.ID)
	assert.Equal(t, models.NotificationStreakMilestone, payload.Type)
	assert.Equal(t, float64(7), payload.Data["days"])

	s.hub.PushUnreadCount("alice", 3)
	msg = readMessage(t, conn)
	require.Equal(t, MessageTypeNotificationCount, msg.Type)
	var count NotificationCountPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &count))
	assert.Equal(t, int64(3), count.UnreadCount)
}

func TestPresenceBroadcasts(t *testing.T) {
	s := newTestServer(t)
	bob := s.dial(t, "bob-token", "bob")

	writeMessage(t, bob, map[string]interface{}{
		"type":    "subscribe",
		"payload": map[string]interface{}{"tables": []string{TopicPresence}},
	})
	require.Equal(t, MessageTypeSubscribe, readMessage(t, bob).Type)

	alice := s.dial(t, "alice-token", "alice")

	online := readMessage(t, bob)
	require.Equal(t, MessageTypeUserOnline, online.Type)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(online.Payload, &p))
	assert.Equal(t, "alice", p.UserID)
	assert.Equal(t, string(StatusOnline), p.Status)

	resp, err := http.Get(s.url + "/ws/online")
	require.NoError(t, err)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, 2, body.Count)

	alice.Close(websocket.StatusNormalClosure, "bye")

	offline := readMessage(t, bob)
	require.Equal(t, MessageTypeUserOffline, offline.Type)
	require.NoError(t, json.Unmarshal(offline.Payload, &p))
	assert.Equal(t, "alice", p.UserID)
	assert.Equal(t, StatusOffline, s.presence.GetPresence("alice").Status)
}
