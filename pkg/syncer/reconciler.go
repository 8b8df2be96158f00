package syncer

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/logger"
)

// Row-change kinds
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Realtime tables
const (
	TableDiscussions     = "discussions"
	TableComments        = "comments"
	TableDiscussionLikes = "discussion_likes"
	TableCommentLikes    = "comment_likes"
	TableReadingProgress = "reading_progress"
	TableNotifications   = "notifications"
)

// ChangeEvent is a row change pushed by the server
type ChangeEvent struct {
	Table     string              `json:"table"`
	Event     string              `json:"event"`
	Record    jsoniter.RawMessage `json:"record,omitempty"`
	Old       jsoniter.RawMessage `json:"old,omitempty"`
	Origin    string              `json:"origin,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

type rowRef struct {
	ID           string  `json:"id"`
	DiscussionID string  `json:"discussion_id"`
	CommentID    string  `json:"comment_id"`
	UserID       string  `json:"user_id"`
	ParentID     *string `json:"parent_id"`
}

// Reconciler folds server row changes into a QueryCache
type Reconciler struct {
	cache    *QueryCache
	clientID string
	userID   string
}

// NewReconciler builds a reconciler. Events whose origin is clientID are
// echoes of this client's own writes and are ignored.
func NewReconciler(cache *QueryCache, clientID, userID string) *Reconciler {
	return &Reconciler{cache: cache, clientID: clientID, userID: userID}
}

// Apply reconciles one event and reports whether it was applied
func (r *Reconciler) Apply(ev ChangeEvent) bool {
	if ev.Origin != "" && ev.Origin == r.clientID {
		return false
	}
	var ref rowRef
	if len(ev.Record) > 0 {
		if err := json.Unmarshal(ev.Record, &ref); err != nil {
			logger.Warn("Dropping malformed row change", "table", ev.Table, "error", err)
			return false
		}
	}

	switch ev.Table {
	case TableDiscussions:
		return r.applyDiscussion(ev, ref)
	case TableComments:
		return r.applyComment(ev, ref)
	case TableDiscussionLikes:
		return r.applyDiscussionLike(ev, ref)
	case TableCommentLikes:
		return r.applyCommentLike(ev, ref)
	case TableReadingProgress:
		return r.applyProgress(ev)
	case TableNotifications:
		return r.cache.Invalidate(PrefixNotifications) > 0
	default:
		return false
	}
}

func (r *Reconciler) applyDiscussion(ev ChangeEvent, ref rowRef) bool {
	if ref.ID == "" {
		return false
	}
	switch ev.Event {
	case EventInsert:
		var d api.Discussion
		if err := json.Unmarshal(ev.Record, &d); err != nil {
			return false
		}
		PrependDiscussion(r.cache, d)
		return true
	case EventUpdate:
		return UpdateDiscussion(r.cache, ref.ID, func(d *api.Discussion) {
			overlay(ev.Record, d)
			d.LikeCount = clampCount(d.LikeCount)
			d.CommentCount = clampCount(d.CommentCount)
		}) > 0
	case EventDelete:
		RemoveDiscussion(r.cache, ref.ID)
		return true
	}
	return false
}

func (r *Reconciler) applyComment(ev ChangeEvent, ref rowRef) bool {
	if ref.ID == "" || ref.DiscussionID == "" {
		return false
	}
	switch ev.Event {
	case EventInsert:
		var c api.Comment
		if err := json.Unmarshal(ev.Record, &c); err != nil {
			return false
		}
		return r.insertComment(ref.DiscussionID, &c)
	case EventUpdate:
		applied := false
		UpdateComments(r.cache, ref.DiscussionID, func(tree []*api.Comment) []*api.Comment {
			if c := findComment(tree, ref.ID); c != nil {
				replies := c.Replies
				overlay(ev.Record, c)
				c.Replies = replies
				c.LikeCount = clampCount(c.LikeCount)
				applied = true
			}
			return tree
		})
		return applied
	case EventDelete:
		applied := false
		UpdateComments(r.cache, ref.DiscussionID, func(tree []*api.Comment) []*api.Comment {
			next, ok := removeComment(tree, ref.ID)
			applied = ok
			return next
		})
		return applied
	}
	return false
}

// insertComment places c under its parent, or at the root when the parent
// is not cached. Known ids are skipped.
func (r *Reconciler) insertComment(discussionID string, c *api.Comment) bool {
	cp := *c
	if cp.Replies == nil {
		cp.Replies = []*api.Comment{}
	}
	applied := false
	UpdateComments(r.cache, discussionID, func(tree []*api.Comment) []*api.Comment {
		if findComment(tree, cp.ID) != nil {
			return tree
		}
		applied = true
		if cp.ParentID != nil {
			if parent := findComment(tree, *cp.ParentID); parent != nil {
				parent.Replies = append(parent.Replies, &cp)
				return tree
			}
		}
		return append(tree, &cp)
	})
	return applied
}

// Like rows move the parent's count by one and, for the local user, the
// liked flag. The parent row's UPDATE that follows carries the absolute
// count and overrides any drift.
func (r *Reconciler) applyDiscussionLike(ev ChangeEvent, ref rowRef) bool {
	delta, ok := likeDelta(ev.Event)
	if !ok || ref.DiscussionID == "" {
		return false
	}
	mine := ref.UserID != "" && ref.UserID == r.userID
	return UpdateDiscussion(r.cache, ref.DiscussionID, func(d *api.Discussion) {
		d.LikeCount = clampCount(d.LikeCount + delta)
		if mine {
			d.IsLiked = delta > 0
		}
	}) > 0
}

func (r *Reconciler) applyCommentLike(ev ChangeEvent, ref rowRef) bool {
	delta, ok := likeDelta(ev.Event)
	if !ok || ref.CommentID == "" {
		return false
	}
	mine := ref.UserID != "" && ref.UserID == r.userID
	applied := false
	for _, key := range r.cache.Keys(PrefixComments) {
		r.cache.Update(key, func(old interface{}) interface{} {
			tree, ok := old.([]*api.Comment)
			if !ok || findComment(tree, ref.CommentID) == nil {
				return old
			}
			next := cloneComments(tree)
			c := findComment(next, ref.CommentID)
			c.LikeCount = clampCount(c.LikeCount + delta)
			if mine {
				c.IsLiked = delta > 0
			}
			applied = true
			return next
		})
	}
	return applied
}

func likeDelta(event string) (int, bool) {
	switch event {
	case EventInsert:
		return 1, true
	case EventDelete:
		return -1, true
	}
	return 0, false
}

func (r *Reconciler) applyProgress(ev ChangeEvent) bool {
	var p api.ReadingProgress
	if err := json.Unmarshal(ev.Record, &p); err != nil || p.PlanDate == "" {
		return false
	}
	UpdatePlanDate(r.cache, p.PlanDate, func(d *api.DailyReadings) {
		for i := range d.Readings {
			if d.Readings[i].ID == p.ReadingID {
				d.Readings[i].IsCompleted = p.IsCompleted
				d.Readings[i].CompletedAt = p.CompletedAt
			}
		}
	})
	r.cache.Invalidate(PrefixStats, PrefixProgress)
	return true
}

// overlay decodes the fields present in record over dst
func overlay(record jsoniter.RawMessage, dst interface{}) {
	if err := json.Unmarshal(record, dst); err != nil {
		logger.Debug("Row overlay failed", "error", err)
	}
}
