package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem    = "system"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeAuth      = "auth"
	MessageTypeSubscribe = "subscribe"

	// Row changes from the database
	MessageTypeRowChange = "row_change"

	// Notification messages
	MessageTypeNotification      = "notification"
	MessageTypeNotificationCount = "notification_count"

	// Presence messages
	MessageTypePresence    = "presence"
	MessageTypeUserOnline  = "user_online"
	MessageTypeUserOffline = "user_offline"
)

// TopicPresence is the subscription name for presence updates. Presence is
// only delivered to clients that subscribe to it by name.
const TopicPresence = "presence"

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ReplyTo:   original.ID,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// AuthPayload represents authentication message payload
type AuthPayload struct {
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status,omitempty"`
}

// SubscribePayload limits the row-change tables a client receives.
// An empty list restores the default of every table.
type SubscribePayload struct {
	Tables []string `json:"tables"`
}

// PresencePayload represents presence update payload
type PresencePayload struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// NotificationPayload is pushed when a notification is delivered
type NotificationPayload struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"notification_type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Priority  string                 `json:"priority"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt int64                  `json:"created_at"`
}

// NotificationCountPayload carries the unread notification count
type NotificationCountPayload struct {
	UnreadCount int64 `json:"unread_count"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
