package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/output"
	"github.com/macchain/backend/pkg/syncer"
)

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func check(b bool) string {
	if b {
		return "✓"
	}
	return " "
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// reference renders a reading like "Genesis 1:1-5"
func reference(r api.Reading) string {
	ref := fmt.Sprintf("%s %d", r.Book, r.Chapter)
	if r.VerseStart != nil {
		ref += fmt.Sprintf(":%d", *r.VerseStart)
		if r.VerseEnd != nil && *r.VerseEnd != *r.VerseStart {
			ref += fmt.Sprintf("-%d", *r.VerseEnd)
		}
	}
	if r.BookKorean != "" {
		ref += " (" + r.BookKorean + ")"
	}
	return ref
}

func authorName(a api.Author) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Username != "" {
		return "@" + a.Username
	}
	return "-"
}

func discussionRows(items []api.Discussion) [][]string {
	rows := make([][]string, 0, len(items))
	for _, d := range items {
		title := truncate(d.Title, 40)
		if d.IsPinned {
			title = "📌 " + title
		}
		rows = append(rows, []string{
			d.ID,
			title,
			authorName(d.Author),
			fmt.Sprintf("%s%d", likeMark(d.IsLiked), d.LikeCount),
			fmt.Sprintf("%d", d.CommentCount),
			ago(d.CreatedAt),
		})
	}
	return rows
}

func likeMark(liked bool) string {
	if liked {
		return "♥ "
	}
	return ""
}

var discussionHeaders = []string{"ID", "TITLE", "AUTHOR", "LIKES", "COMMENTS", "POSTED"}

// reportQueued turns a parked mutation into a warning instead of a failure
func reportQueued(err error, what string) error {
	if errors.Is(err, syncer.ErrQueued) {
		output.PrintWarning("server unreachable; %s saved offline. Run `macchain sync` when back online.", what)
		return nil
	}
	return err
}
