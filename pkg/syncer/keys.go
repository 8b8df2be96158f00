package syncer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/macchain/backend/pkg/api"
)

// Key prefixes. Invalidate works on these.
const (
	PrefixDiscussionLists = "discussions:list:"
	PrefixDiscussion      = "discussion:"
	PrefixComments        = "comments:"
	PrefixPlanDate        = "plan:date:"
	PrefixStats           = "stats:"
	PrefixProgress        = "progress:"
	PrefixBookmarks       = "bookmarks:"
	PrefixNotifications   = "notifications:"
)

// DiscussionListKey is the cache key of one feed page
func DiscussionListKey(p api.ListParams) string {
	sort := p.Sort
	if sort == "" {
		sort = "latest"
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf("%s%s:%s:%d", PrefixDiscussionLists, sort, p.CategoryID, page)
}

// parseListKey reverses DiscussionListKey
func parseListKey(key string) (sort, category string, page int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(key, PrefixDiscussionLists), ":")
	if len(parts) != 3 {
		return "", "", 0, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, false
	}
	return parts[0], parts[1], page, true
}

func DiscussionKey(id string) string { return PrefixDiscussion + id }

func CommentsKey(discussionID string) string { return PrefixComments + discussionID }

func PlanDateKey(date string) string { return PrefixPlanDate + date }

func StatsKey(kind string, period int) string {
	return fmt.Sprintf("%s%s:%d", PrefixStats, kind, period)
}

func ProgressHistoryKey(from, to string) string {
	return PrefixProgress + "history:" + from + ":" + to
}

func BookmarksKey(page int) string { return fmt.Sprintf("%s%d", PrefixBookmarks, page) }
