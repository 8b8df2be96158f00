package syncer

import (
	"github.com/macchain/backend/pkg/api"
)

// UpdateDiscussion applies fn to every cached copy of a discussion: feed
// pages, bookmarks and the detail entry. It returns how many were changed.
func UpdateDiscussion(c *QueryCache, id string, fn func(d *api.Discussion)) int {
	changed := 0
	for _, key := range listKeys(c) {
		c.Update(key, func(old interface{}) interface{} {
			list, ok := old.(*api.DiscussionList)
			if !ok {
				return old
			}
			idx := indexOfDiscussion(list.Discussions, id)
			if idx < 0 {
				return old
			}
			next := cloneList(list)
			fn(&next.Discussions[idx])
			changed++
			return next
		})
	}
	c.Update(DiscussionKey(id), func(old interface{}) interface{} {
		d, ok := old.(*api.Discussion)
		if !ok {
			return old
		}
		next := *d
		fn(&next)
		changed++
		return &next
	})
	return changed
}

// RemoveDiscussion drops a discussion from every cached list and deletes
// its detail and comment entries
func RemoveDiscussion(c *QueryCache, id string) {
	for _, key := range listKeys(c) {
		c.Update(key, func(old interface{}) interface{} {
			list, ok := old.(*api.DiscussionList)
			if !ok {
				return old
			}
			idx := indexOfDiscussion(list.Discussions, id)
			if idx < 0 {
				return old
			}
			next := cloneList(list)
			next.Discussions = append(next.Discussions[:idx], next.Discussions[idx+1:]...)
			if next.Pagination.Total > 0 {
				next.Pagination.Total--
			}
			return next
		})
	}
	c.Remove(DiscussionKey(id))
	c.Remove(CommentsKey(id))
}

// PrependDiscussion places a new discussion on first latest-sorted feed
// pages that would contain it, below any pinned run at the top. Pages in
// other orders cannot place it locally and are marked stale. Lists that
// already hold the id are left alone.
func PrependDiscussion(c *QueryCache, d api.Discussion) {
	for _, key := range c.Keys(PrefixDiscussionLists) {
		sort, category, page, ok := parseListKey(key)
		if !ok {
			continue
		}
		if category != "" && (d.CategoryID == nil || *d.CategoryID != category) {
			continue
		}
		if sort != "latest" {
			c.Invalidate(key)
			continue
		}
		if page != 1 {
			continue
		}
		c.Update(key, func(old interface{}) interface{} {
			list, ok := old.(*api.DiscussionList)
			if !ok || indexOfDiscussion(list.Discussions, d.ID) >= 0 {
				return old
			}
			at := 0
			if !d.IsPinned {
				for at < len(list.Discussions) && list.Discussions[at].IsPinned {
					at++
				}
			}
			next := cloneList(list)
			next.Discussions = append(next.Discussions[:at:at], append([]api.Discussion{d}, list.Discussions[at:]...)...)
			next.Pagination.Total++
			return next
		})
	}
}

func listKeys(c *QueryCache) []string {
	return append(c.Keys(PrefixDiscussionLists), c.Keys(PrefixBookmarks)...)
}

func indexOfDiscussion(items []api.Discussion, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneList(list *api.DiscussionList) *api.DiscussionList {
	next := *list
	next.Discussions = append([]api.Discussion(nil), list.Discussions...)
	return &next
}

// UpdateComments applies fn to a copy of a discussion's cached comment tree
func UpdateComments(c *QueryCache, discussionID string, fn func(tree []*api.Comment) []*api.Comment) bool {
	return c.Update(CommentsKey(discussionID), func(old interface{}) interface{} {
		tree, ok := old.([]*api.Comment)
		if !ok {
			return old
		}
		return fn(cloneComments(tree))
	})
}

func cloneComments(tree []*api.Comment) []*api.Comment {
	if tree == nil {
		return nil
	}
	out := make([]*api.Comment, len(tree))
	for i, c := range tree {
		cp := *c
		cp.Replies = cloneComments(c.Replies)
		out[i] = &cp
	}
	return out
}

// findComment searches the tree depth-first
func findComment(tree []*api.Comment, id string) *api.Comment {
	for _, c := range tree {
		if c.ID == id {
			return c
		}
		if found := findComment(c.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// removeComment deletes id from the tree. Its replies are promoted to the
// root, the way the server lists orphaned replies.
func removeComment(tree []*api.Comment, id string) ([]*api.Comment, bool) {
	var orphans []*api.Comment
	tree, ok := removeFrom(tree, id, &orphans)
	if ok {
		tree = append(tree, orphans...)
	}
	return tree, ok
}

func removeFrom(tree []*api.Comment, id string, orphans *[]*api.Comment) ([]*api.Comment, bool) {
	for i, c := range tree {
		if c.ID == id {
			*orphans = c.Replies
			return append(tree[:i:i], tree[i+1:]...), true
		}
		if replies, ok := removeFrom(c.Replies, id, orphans); ok {
			c.Replies = replies
			return tree, true
		}
	}
	return tree, false
}

// UpdatePlanDate applies fn to the cached readings of a date
func UpdatePlanDate(c *QueryCache, date string, fn func(d *api.DailyReadings)) bool {
	return c.Update(PlanDateKey(date), func(old interface{}) interface{} {
		day, ok := old.(*api.DailyReadings)
		if !ok {
			return old
		}
		next := *day
		next.Readings = append([]api.ReadingStatus(nil), day.Readings...)
		fn(&next)
		next.CompletedCount = 0
		for _, r := range next.Readings {
			if r.IsCompleted {
				next.CompletedCount++
			}
		}
		return &next
	})
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
