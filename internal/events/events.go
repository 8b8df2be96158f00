// Package events carries row-change notifications from services to the
// realtime hub.
package events

import (
	"context"
	"sync"
	"time"
)

// Row-change kinds
const (
	Insert = "INSERT"
	Update = "UPDATE"
	Delete = "DELETE"
)

// Tables that emit row changes
const (
	TableDiscussions     = "discussions"
	TableComments        = "comments"
	TableDiscussionLikes = "discussion_likes"
	TableCommentLikes    = "comment_likes"
	TableReadingProgress = "reading_progress"
	TableNotifications   = "notifications"
)

// ChangeEvent describes one row mutation. Origin is the X-Client-ID of the
// request that caused it so the originating client can drop the echo.
type ChangeEvent struct {
	Table     string      `json:"table"`
	Event     string      `json:"event"`
	Record    interface{} `json:"record,omitempty"`
	Old       interface{} `json:"old,omitempty"`
	Origin    string      `json:"origin,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// UserID limits delivery to one user's connections; empty means broadcast
	UserID string `json:"-"`
}

// Private reports whether the event must only reach its owner
func (e ChangeEvent) Private() bool {
	return e.Table == TableReadingProgress || e.Table == TableNotifications
}

// Publisher delivers change events to connected clients
type Publisher interface {
	PublishChange(event ChangeEvent)
}

// Nop discards events
type Nop struct{}

func (Nop) PublishChange(ChangeEvent) {}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *Recorder) PublishChange(event ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Tables lists "table:event" pairs in publish order
func (r *Recorder) Tables() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Table+":"+e.Event)
	}
	return out
}

// OrNop returns p, or a Nop publisher when p is nil
func OrNop(p Publisher) Publisher {
	if p == nil {
		return Nop{}
	}
	return p
}

type originKey struct{}

// WithOrigin tags ctx with the client id whose request is being served
func WithOrigin(ctx context.Context, origin string) context.Context {
	if origin == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the client id stored by WithOrigin
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}

// New builds an event stamped with the request origin
func New(ctx context.Context, table, event string, record, old interface{}) ChangeEvent {
	return ChangeEvent{
		Table:     table,
		Event:     event,
		Record:    record,
		Old:       old,
		Origin:    OriginFrom(ctx),
		Timestamp: time.Now().UTC(),
	}
}
