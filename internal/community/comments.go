package community

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"github.com/macchain/backend/internal/util"
	"gorm.io/gorm"
)

// CommentView is a comment with its author and direct replies
type CommentView struct {
	models.Comment
	Author  models.Author  `json:"author"`
	IsLiked bool           `json:"is_liked"`
	Replies []*CommentView `json:"replies"`
}

// commentRecord is the realtime row for a new comment
type commentRecord struct {
	models.Comment
	Author models.Author `json:"author"`
}

// CreateCommentRequest is the body of a new comment or reply
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

// UpdateCommentRequest replaces a comment's content
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

func validateComment(content string) error {
	if !util.RuneLenBetween(content, 1, 2000) {
		return invalid("content", "comment must be between 1 and 2000 characters")
	}
	return nil
}

// ListComments returns the discussion's comments as a one-level tree.
// Replies to replies hang under their root comment, and replies whose
// parent is gone are promoted to the root.
func (s *Service) ListComments(ctx context.Context, viewerID, discussionID string) ([]*CommentView, error) {
	if _, err := s.loadDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}

	var rows []models.Comment
	if err := s.db.WithContext(ctx).Preload("User").
		Where("discussion_id = ?", discussionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	liked := map[string]bool{}
	if viewerID != "" && len(rows) > 0 {
		ids := make([]string, len(rows))
		for i, c := range rows {
			ids[i] = c.ID
		}
		var likedIDs []string
		if err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
			Where("user_id = ? AND comment_id IN ?", viewerID, ids).
			Pluck("comment_id", &likedIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to load comment likes: %w", err)
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	return BuildTree(rows, liked), nil
}

// BuildTree arranges comments (oldest first) into roots with replies
func BuildTree(rows []models.Comment, liked map[string]bool) []*CommentView {
	byID := make(map[string]*CommentView, len(rows))
	parentOf := make(map[string]string, len(rows))
	for _, c := range rows {
		byID[c.ID] = &CommentView{Comment: c, Author: c.User.ToAuthor(), IsLiked: liked[c.ID], Replies: []*CommentView{}}
		if c.ParentID != nil {
			parentOf[c.ID] = *c.ParentID
		}
	}

	rootOf := func(id string) string {
		seen := map[string]bool{}
		for {
			parent, ok := parentOf[id]
			if !ok || byID[parent] == nil || seen[parent] {
				return id
			}
			seen[id] = true
			id = parent
		}
	}

	roots := make([]*CommentView, 0, len(rows))
	for _, c := range rows {
		view := byID[c.ID]
		root := rootOf(c.ID)
		if root == c.ID {
			roots = append(roots, view)
			continue
		}
		byID[root].Replies = append(byID[root].Replies, view)
	}
	return roots
}

// CreateComment adds a comment or reply to an open discussion
func (s *Service) CreateComment(ctx context.Context, userID, discussionID string, req CreateCommentRequest) (*CommentView, error) {
	if err := validateComment(req.Content); err != nil {
		return nil, err
	}

	d, err := s.loadDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	if d.IsLocked {
		return nil, ErrLocked
	}

	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	var parent *models.Comment
	if req.ParentID != nil {
		var p models.Comment
		err := s.db.WithContext(ctx).First(&p, "id = ?", *req.ParentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.DiscussionID != discussionID) {
			return nil, invalid("parent_id", "parent comment must belong to the same discussion")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		parent = &p
	}

	ctx, span := telemetry.GetBusinessEvents().TraceCommentCreated(ctx, discussionID, parent != nil)
	defer span.End()

	comment := models.Comment{
		DiscussionID: discussionID,
		UserID:       userID,
		ParentID:     req.ParentID,
		Content:      strings.TrimSpace(req.Content),
	}
	var commentCount int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Discussion{}).Where("id = ?", discussionID).
			Update("comment_count", increment("comment_count")).Error; err != nil {
			return err
		}
		commentCount, err = readCounter(tx, &models.Discussion{}, discussionID, "comment_count")
		return err
	})
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if err := s.db.WithContext(ctx).Preload("User").First(&comment, "id = ?", comment.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload comment: %w", err)
	}

	countAction("comment_created")
	s.publish(ctx, events.TableComments, events.Insert, commentRecord{Comment: comment, Author: comment.User.ToAuthor()}, nil)
	s.publish(ctx, events.TableDiscussions, events.Update,
		map[string]interface{}{"id": discussionID, "comment_count": commentCount}, nil)

	name := s.displayName(ctx, userID)
	s.notify(ctx, d.UserID, userID, map[string]interface{}{
		"message":       fmt.Sprintf("%s님이 회원님의 글에 댓글을 남겼습니다.", name),
		"discussion_id": discussionID,
		"comment_id":    comment.ID,
	})
	if parent != nil && parent.UserID != d.UserID {
		s.notify(ctx, parent.UserID, userID, map[string]interface{}{
			"message":       fmt.Sprintf("%s님이 회원님의 댓글에 답글을 남겼습니다.", name),
			"discussion_id": discussionID,
			"comment_id":    comment.ID,
		})
	}

	logger.Log.Debug("Comment created", logger.WithCommentID(comment.ID), logger.WithDiscussionID(discussionID))
	return &CommentView{Comment: comment, Author: comment.User.ToAuthor(), Replies: []*CommentView{}}, nil
}

func (s *Service) ownedComment(ctx context.Context, userID, id string) (*models.Comment, error) {
	var c models.Comment
	err := s.db.WithContext(ctx).Preload("User").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if c.UserID != userID {
		return nil, ErrForbidden
	}
	return &c, nil
}

// UpdateComment edits a comment owned by userID
func (s *Service) UpdateComment(ctx context.Context, userID, id string, req UpdateCommentRequest) (*CommentView, error) {
	if err := validateComment(req.Content); err != nil {
		return nil, err
	}
	old, err := s.ownedComment(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	updated.Content = strings.TrimSpace(req.Content)
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		Update("content", updated.Content).Error; err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	if err := s.db.WithContext(ctx).Preload("User").First(&updated, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload comment: %w", err)
	}

	s.publish(ctx, events.TableComments, events.Update, updated, old)
	return &CommentView{Comment: updated, Author: updated.User.ToAuthor(), Replies: []*CommentView{}}, nil
}

// DeleteComment soft-deletes a comment owned by userID
func (s *Service) DeleteComment(ctx context.Context, userID, id string) error {
	old, err := s.ownedComment(ctx, userID, id)
	if err != nil {
		return err
	}

	var commentCount int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Comment{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Discussion{}).Where("id = ?", old.DiscussionID).
			Update("comment_count", decrement("comment_count")).Error; err != nil {
			return err
		}
		commentCount, err = readCounter(tx, &models.Discussion{}, old.DiscussionID, "comment_count")
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	countAction("comment_deleted")
	s.publish(ctx, events.TableComments, events.Delete,
		map[string]string{"id": id, "discussion_id": old.DiscussionID}, old)
	s.publish(ctx, events.TableDiscussions, events.Update,
		map[string]interface{}{"id": old.DiscussionID, "comment_count": commentCount}, nil)
	return nil
}
