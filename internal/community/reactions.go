package community

import (
	"context"
	"errors"
	"fmt"

	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"github.com/macchain/backend/internal/util"
	"gorm.io/gorm"
)

// LikeResult is the state after a like toggle
type LikeResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// BookmarkResult is the state after a bookmark toggle
type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
	Count      int  `json:"count"`
}

// ToggleDiscussionLike likes or unlikes a discussion
func (s *Service) ToggleDiscussionLike(ctx context.Context, userID, discussionID string) (*LikeResult, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceToggle(ctx, "discussion_like", discussionID)
	defer span.End()

	d, err := s.loadDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}

	var (
		result LikeResult
		like   models.DiscussionLike
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("user_id = ? AND discussion_id = ?", userID, discussionID).First(&like).Error
		switch {
		case findErr == nil:
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Discussion{}).Where("id = ?", discussionID).
				Update("like_count", decrement("like_count")).Error; err != nil {
				return err
			}
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			like = models.DiscussionLike{UserID: userID, DiscussionID: discussionID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Discussion{}).Where("id = ?", discussionID).
				Update("like_count", increment("like_count")).Error; err != nil {
				return err
			}
			result.Liked = true
		default:
			return findErr
		}
		var err error
		result.Count, err = readCounter(tx, &models.Discussion{}, discussionID, "like_count")
		return err
	})
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}

	kind := events.Delete
	action := "discussion_unliked"
	if result.Liked {
		kind = events.Insert
		action = "discussion_liked"
	}
	countAction(action)
	s.publish(ctx, events.TableDiscussionLikes, kind, like, nil)
	s.publish(ctx, events.TableDiscussions, events.Update,
		map[string]interface{}{"id": discussionID, "like_count": result.Count}, nil)

	if result.Liked && result.Count == 1 {
		s.notify(ctx, d.UserID, userID, map[string]interface{}{
			"message":       fmt.Sprintf("%s님이 회원님의 글을 좋아합니다.", s.displayName(ctx, userID)),
			"discussion_id": discussionID,
		})
	}
	return &result, nil
}

// ToggleCommentLike likes or unlikes a comment
func (s *Service) ToggleCommentLike(ctx context.Context, userID, commentID string) (*LikeResult, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceToggle(ctx, "comment_like", commentID)
	defer span.End()

	var c models.Comment
	err := s.db.WithContext(ctx).First(&c, "id = ?", commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}

	var (
		result LikeResult
		like   models.CommentLike
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&like).Error
		switch {
		case findErr == nil:
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
				Update("like_count", decrement("like_count")).Error; err != nil {
				return err
			}
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			like = models.CommentLike{UserID: userID, CommentID: commentID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
				Update("like_count", increment("like_count")).Error; err != nil {
				return err
			}
			result.Liked = true
		default:
			return findErr
		}
		var err error
		result.Count, err = readCounter(tx, &models.Comment{}, commentID, "like_count")
		return err
	})
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to toggle comment like: %w", err)
	}

	kind := events.Delete
	action := "comment_unliked"
	if result.Liked {
		kind = events.Insert
		action = "comment_liked"
	}
	countAction(action)
	s.publish(ctx, events.TableCommentLikes, kind, like, nil)
	s.publish(ctx, events.TableComments, events.Update,
		map[string]interface{}{"id": commentID, "discussion_id": c.DiscussionID, "like_count": result.Count}, nil)

	if result.Liked && result.Count == 1 {
		s.notify(ctx, c.UserID, userID, map[string]interface{}{
			"message":       fmt.Sprintf("%s님이 회원님의 댓글을 좋아합니다.", s.displayName(ctx, userID)),
			"discussion_id": c.DiscussionID,
			"comment_id":    commentID,
		})
	}
	return &result, nil
}

// ToggleBookmark saves or unsaves a discussion for userID
func (s *Service) ToggleBookmark(ctx context.Context, userID, discussionID string) (*BookmarkResult, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceToggle(ctx, "bookmark", discussionID)
	defer span.End()

	if _, err := s.loadDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}

	var result BookmarkResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Bookmark
		findErr := tx.Where("user_id = ? AND discussion_id = ?", userID, discussionID).First(&b).Error
		switch {
		case findErr == nil:
			if err := tx.Delete(&b).Error; err != nil {
				return err
			}
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Bookmark{UserID: userID, DiscussionID: discussionID}).Error; err != nil {
				return err
			}
			result.Bookmarked = true
		default:
			return findErr
		}
		var n int64
		if err := tx.Model(&models.Bookmark{}).Where("discussion_id = ?", discussionID).Count(&n).Error; err != nil {
			return err
		}
		result.Count = int(n)
		return nil
	})
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to toggle bookmark: %w", err)
	}

	if result.Bookmarked {
		countAction("bookmarked")
	} else {
		countAction("unbookmarked")
	}
	return &result, nil
}

// MyBookmarks lists the discussions userID bookmarked, newest bookmark first
func (s *Service) MyBookmarks(ctx context.Context, userID string, page, limit int) (*DiscussionList, error) {
	page, limit = util.ClampPage(page, limit, defaultPageSize, maxPageSize)

	q := s.db.WithContext(ctx).Model(&models.Discussion{}).
		Joins("JOIN bookmarks ON bookmarks.discussion_id = discussions.id AND bookmarks.user_id = ?", userID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookmarks: %w", err)
	}

	var rows []models.Discussion
	if err := q.Session(&gorm.Session{}).
		Preload("User").Preload("Category").
		Order("bookmarks.created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	views, err := s.decorate(ctx, userID, rows)
	if err != nil {
		return nil, err
	}
	return &DiscussionList{Discussions: views, Pagination: newPagination(page, limit, total)}, nil
}
