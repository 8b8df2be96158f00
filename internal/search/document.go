package search

import (
	"time"

	"github.com/macchain/backend/internal/models"
)

// DiscussionDoc is the indexed form of a discussion
type DiscussionDoc struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	CategoryID       string    `json:"category_id,omitempty"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	PassageReference string    `json:"passage_reference,omitempty"`
	LikeCount        int       `json:"like_count"`
	CommentCount     int       `json:"comment_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// DiscussionToSearchDoc converts a discussion; username comes from the
// preloaded author when present
func DiscussionToSearchDoc(d models.Discussion) DiscussionDoc {
	doc := DiscussionDoc{
		ID:               d.ID,
		UserID:           d.UserID,
		Username:         d.User.Username,
		Title:            d.Title,
		Content:          d.Content,
		PassageReference: d.PassageReference,
		LikeCount:        d.LikeCount,
		CommentCount:     d.CommentCount,
		CreatedAt:        d.CreatedAt,
	}
	if d.CategoryID != nil {
		doc.CategoryID = *d.CategoryID
	}
	return doc
}
