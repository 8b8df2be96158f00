package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/logger"
)

// Offline entry kinds
const (
	KindSetProgress      = "set_progress"
	KindCreateComment    = "create_comment"
	KindCreateDiscussion = "create_discussion"
)

// DefaultStaleTime is how long a fetched value is served without refetching
const DefaultStaleTime = 30 * time.Second

type progressPayload struct {
	Date      string `json:"date"`
	ReadingID int    `json:"reading_id"`
	Completed bool   `json:"completed"`
}

type commentPayload struct {
	DiscussionID string  `json:"discussion_id"`
	Content      string  `json:"content"`
	ParentID     *string `json:"parent_id,omitempty"`
}

// StoreOptions configure a Store
type StoreOptions struct {
	ClientID      string
	UserID        string
	Strategy      ConflictStrategy
	MaxConcurrent int
	MaxRetries    int
	OfflinePath   string
	StaleTime     time.Duration
}

// Store is the client's view of server state
type Store struct {
	api        *api.Client
	cache      *QueryCache
	mutations  *MutationManager
	tasks      *TaskQueue
	offline    *OfflineQueue
	reconciler *Reconciler
	staleTime  time.Duration
}

// NewStore wires a cache, mutation manager, task queue and offline queue
// around client
func NewStore(client *api.Client, opts StoreOptions) (*Store, error) {
	offline, err := NewOfflineQueue(opts.OfflinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load offline queue: %w", err)
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	retry := DefaultRetryPolicy()
	if opts.MaxRetries > 0 {
		retry.MaxAttempts = opts.MaxRetries
	}
	cache := NewQueryCache()
	return &Store{
		api:        client,
		cache:      cache,
		mutations:  NewMutationManager(cache, offline, MutationOptions{Strategy: opts.Strategy, Retry: retry}),
		tasks:      NewTaskQueue(opts.MaxConcurrent),
		offline:    offline,
		reconciler: NewReconciler(cache, opts.ClientID, opts.UserID),
		staleTime:  opts.StaleTime,
	}, nil
}

func (s *Store) Cache() *QueryCache         { return s.cache }
func (s *Store) Tasks() *TaskQueue          { return s.tasks }
func (s *Store) Offline() *OfflineQueue     { return s.offline }
func (s *Store) Reconciler() *Reconciler    { return s.reconciler }
func (s *Store) Strategy() ConflictStrategy { return s.mutations.Strategy() }

// Close stops background tasks
func (s *Store) Close() {
	s.tasks.Close()
}

// Feed returns a feed page
func (s *Store) Feed(ctx context.Context, p api.ListParams) (*api.DiscussionList, error) {
	return FetchAs(ctx, s.cache, DiscussionListKey(p), s.staleTime, func(ctx context.Context) (*api.DiscussionList, error) {
		return s.api.ListDiscussions(ctx, p)
	})
}

// PrefetchFeed warms the next pages in the background
func (s *Store) PrefetchFeed(p api.ListParams, pages int) {
	if p.Page < 1 {
		p.Page = 1
	}
	for i := 1; i <= pages; i++ {
		next := p
		next.Page = p.Page + i
		s.tasks.Add(Task{
			Name:     "prefetch " + DiscussionListKey(next),
			Priority: PriorityLow,
			Run: func(ctx context.Context) error {
				_, err := s.Feed(ctx, next)
				return err
			},
		})
	}
}

func (s *Store) Bookmarks(ctx context.Context, page int) (*api.DiscussionList, error) {
	return FetchAs(ctx, s.cache, BookmarksKey(page), s.staleTime, func(ctx context.Context) (*api.DiscussionList, error) {
		return s.api.Bookmarks(ctx, page, 0)
	})
}

// Discussion returns one discussion
func (s *Store) Discussion(ctx context.Context, id string) (*api.Discussion, error) {
	return FetchAs(ctx, s.cache, DiscussionKey(id), s.staleTime, func(ctx context.Context) (*api.Discussion, error) {
		return s.api.GetDiscussion(ctx, id)
	})
}

// Comments returns a discussion's comment tree
func (s *Store) Comments(ctx context.Context, discussionID string) ([]*api.Comment, error) {
	return FetchAs(ctx, s.cache, CommentsKey(discussionID), s.staleTime, func(ctx context.Context) ([]*api.Comment, error) {
		return s.api.Comments(ctx, discussionID)
	})
}

// Today returns today's readings with progress
func (s *Store) Today(ctx context.Context) (*api.DailyReadings, error) {
	day, err := s.api.Today(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(PlanDateKey(day.Date), day)
	return day, nil
}

// PlanForDate returns a date's readings with progress
func (s *Store) PlanForDate(ctx context.Context, date string) (*api.DailyReadings, error) {
	return FetchAs(ctx, s.cache, PlanDateKey(date), s.staleTime, func(ctx context.Context) (*api.DailyReadings, error) {
		return s.api.PlanForDate(ctx, date)
	})
}

// ToggleLike flips the like on a discussion optimistically
func (s *Store) ToggleLike(ctx context.Context, id string) (*api.LikeResult, error) {
	res, err := s.mutations.Mutate(ctx, Mutation{
		Name: "toggle_like",
		Keys: discussionKeys(s.cache, id),
		Optimistic: func(c *QueryCache) {
			UpdateDiscussion(c, id, func(d *api.Discussion) {
				if d.IsLiked {
					d.LikeCount = clampCount(d.LikeCount - 1)
				} else {
					d.LikeCount++
				}
				d.IsLiked = !d.IsLiked
			})
		},
		Execute: func(ctx context.Context) (interface{}, error) {
			return s.api.ToggleDiscussionLike(ctx, id)
		},
		ServerValues: func(result interface{}) map[string]interface{} {
			r := result.(*api.LikeResult)
			return discussionValues(s.cache, id, func(d *api.Discussion) {
				d.IsLiked = r.Liked
				d.LikeCount = r.Count
			})
		},
	})
	if err != nil {
		return nil, err
	}
	return res.(*api.LikeResult), nil
}

// ToggleBookmark flips the bookmark on a discussion optimistically
func (s *Store) ToggleBookmark(ctx context.Context, id string) (*api.BookmarkResult, error) {
	res, err := s.mutations.Mutate(ctx, Mutation{
		Name: "toggle_bookmark",
		Keys: discussionKeys(s.cache, id),
		Optimistic: func(c *QueryCache) {
			UpdateDiscussion(c, id, func(d *api.Discussion) {
				d.IsBookmarked = !d.IsBookmarked
			})
		},
		Execute: func(ctx context.Context) (interface{}, error) {
			return s.api.ToggleBookmark(ctx, id)
		},
		ServerValues: func(result interface{}) map[string]interface{} {
			r := result.(*api.BookmarkResult)
			return discussionValues(s.cache, id, func(d *api.Discussion) {
				d.IsBookmarked = r.Bookmarked
			})
		},
		Invalidate: []string{PrefixBookmarks},
	})
	if err != nil {
		return nil, err
	}
	return res.(*api.BookmarkResult), nil
}

// CreateDiscussion posts a discussion. Unreachable servers park it offline.
func (s *Store) CreateDiscussion(ctx context.Context, in api.DiscussionInput) (*api.Discussion, error) {
	entry, err := NewOfflineEntry(KindCreateDiscussion, in)
	if err != nil {
		return nil, err
	}
	res, err := s.mutations.Mutate(ctx, Mutation{
		Name:       KindCreateDiscussion,
		Idempotent: true,
		Execute: func(ctx context.Context) (interface{}, error) {
			return s.api.CreateDiscussion(api.WithIdempotencyKey(ctx, entry.ID), in)
		},
		Offline: entry,
	})
	if err != nil {
		return nil, err
	}
	d := res.(*api.Discussion)
	s.cache.Set(DiscussionKey(d.ID), d)
	PrependDiscussion(s.cache, *d)
	return d, nil
}

// CreateComment adds a comment or reply. Unreachable servers park it offline.
func (s *Store) CreateComment(ctx context.Context, discussionID, content string, parentID *string) (*api.Comment, error) {
	entry, err := NewOfflineEntry(KindCreateComment, commentPayload{DiscussionID: discussionID, Content: content, ParentID: parentID})
	if err != nil {
		return nil, err
	}
	res, err := s.mutations.Mutate(ctx, Mutation{
		Name:       KindCreateComment,
		Idempotent: true,
		Execute: func(ctx context.Context) (interface{}, error) {
			return s.api.CreateComment(api.WithIdempotencyKey(ctx, entry.ID), discussionID, content, parentID)
		},
		Offline: entry,
	})
	if err != nil {
		return nil, err
	}
	comment := res.(*api.Comment)
	s.reconciler.insertComment(discussionID, comment)
	UpdateDiscussion(s.cache, discussionID, func(d *api.Discussion) {
		d.CommentCount++
	})
	return comment, nil
}

// SetReadingProgress marks a reading done or undone. Unreachable servers
// park the change offline and keep the optimistic state.
func (s *Store) SetReadingProgress(ctx context.Context, date string, readingID int, completed bool) (*api.ReadingProgress, error) {
	entry, err := NewOfflineEntry(KindSetProgress, progressPayload{Date: date, ReadingID: readingID, Completed: completed})
	if err != nil {
		return nil, err
	}
	res, err := s.mutations.Mutate(ctx, Mutation{
		Name:       KindSetProgress,
		Keys:       []string{PlanDateKey(date)},
		Idempotent: true,
		Optimistic: func(c *QueryCache) {
			UpdatePlanDate(c, date, func(d *api.DailyReadings) {
				now := time.Now()
				for i := range d.Readings {
					if d.Readings[i].ID != readingID {
						continue
					}
					d.Readings[i].IsCompleted = completed
					d.Readings[i].CompletedAt = nil
					if completed {
						d.Readings[i].CompletedAt = &now
					}
				}
			})
		},
		Execute: func(ctx context.Context) (interface{}, error) {
			return s.api.SetReadingProgress(ctx, date, readingID, completed)
		},
		Invalidate: []string{PrefixStats, PrefixProgress},
		Offline:    entry,
	})
	if err != nil {
		return nil, err
	}
	return res.(*api.ReadingProgress), nil
}

// Sync replays parked mutations and invalidates the cache if any landed
func (s *Store) Sync(ctx context.Context) (ReplayResult, error) {
	result, err := s.offline.Replay(ctx, s.replay)
	if result.Succeeded > 0 {
		s.cache.Invalidate()
	}
	logger.Info("Offline queue replayed",
		"succeeded", result.Succeeded, "failed", result.Failed, "expired", result.Expired)
	return result, err
}

func (s *Store) replay(ctx context.Context, entry OfflineEntry) error {
	ctx = api.WithIdempotencyKey(ctx, entry.ID)
	switch entry.Kind {
	case KindSetProgress:
		var p progressPayload
		if err := entry.Decode(&p); err != nil {
			return err
		}
		_, err := s.api.SetReadingProgress(ctx, p.Date, p.ReadingID, p.Completed)
		return err
	case KindCreateComment:
		var p commentPayload
		if err := entry.Decode(&p); err != nil {
			return err
		}
		_, err := s.api.CreateComment(ctx, p.DiscussionID, p.Content, p.ParentID)
		return err
	case KindCreateDiscussion:
		var in api.DiscussionInput
		if err := entry.Decode(&in); err != nil {
			return err
		}
		_, err := s.api.CreateDiscussion(ctx, in)
		return err
	default:
		return fmt.Errorf("unknown offline entry kind %q", entry.Kind)
	}
}

// discussionKeys lists every cache key that may hold discussion id
func discussionKeys(c *QueryCache, id string) []string {
	return append(listKeys(c), DiscussionKey(id))
}

// discussionValues computes updated copies of every cached entry holding
// discussion id without writing them
func discussionValues(c *QueryCache, id string, fn func(d *api.Discussion)) map[string]interface{} {
	out := make(map[string]interface{})
	for _, key := range listKeys(c) {
		v, _ := c.Get(key)
		list, ok := v.(*api.DiscussionList)
		if !ok {
			continue
		}
		idx := indexOfDiscussion(list.Discussions, id)
		if idx < 0 {
			continue
		}
		next := cloneList(list)
		fn(&next.Discussions[idx])
		out[key] = next
	}
	if v, ok := c.Get(DiscussionKey(id)); ok {
		if d, ok := v.(*api.Discussion); ok {
			next := *d
			fn(&next)
			out[DiscussionKey(id)] = &next
		}
	}
	return out
}
