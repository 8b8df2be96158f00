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

// Sort orders for ListDiscussions
const (
	SortLatest  = "latest"
	SortPopular = "popular"
	SortOldest  = "oldest"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// DiscussionView is a discussion with its author and the viewer's flags
type DiscussionView struct {
	models.Discussion
	Author       models.Author `json:"author"`
	IsLiked      bool          `json:"is_liked"`
	IsBookmarked bool          `json:"is_bookmarked"`
}

// discussionRecord is the realtime row for a new discussion. It goes to
// every client, so it carries the author but no viewer flags.
type discussionRecord struct {
	models.Discussion
	Author models.Author `json:"author"`
}

// DiscussionList is one page of discussions
type DiscussionList struct {
	Discussions []DiscussionView `json:"discussions"`
	Pagination  Pagination       `json:"pagination"`
}

// ListParams filters and pages ListDiscussions
type ListParams struct {
	CategoryID string
	Page       int
	Limit      int
	Sort       string
}

// CreateDiscussionRequest is the body of a new discussion
type CreateDiscussionRequest struct {
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	PassageReference string  `json:"passage_reference"`
	PassageText      string  `json:"passage_text"`
	CategoryID       *string `json:"category_id"`
}

// UpdateDiscussionRequest changes only the non-nil fields
type UpdateDiscussionRequest struct {
	Title            *string `json:"title"`
	Content          *string `json:"content"`
	PassageReference *string `json:"passage_reference"`
	PassageText      *string `json:"passage_text"`
	CategoryID       *string `json:"category_id"`
}

func validateTitle(title string) error {
	if !util.RuneLenBetween(title, 2, 200) {
		return invalid("title", "title must be between 2 and 200 characters")
	}
	return nil
}

func validateContent(content string) error {
	if !util.RuneLenBetween(content, 10, 0) {
		return invalid("content", "content must be at least 10 characters")
	}
	return nil
}

func orderFor(sort string) string {
	switch sort {
	case SortPopular:
		return "like_count DESC, comment_count DESC, created_at DESC"
	case SortOldest:
		return "created_at ASC"
	default:
		return "is_pinned DESC, created_at DESC"
	}
}

// ListDiscussions pages through live discussions
func (s *Service) ListDiscussions(ctx context.Context, viewerID string, p ListParams) (*DiscussionList, error) {
	page, limit := util.ClampPage(p.Page, p.Limit, defaultPageSize, maxPageSize)

	q := s.db.WithContext(ctx).Model(&models.Discussion{})
	if p.CategoryID != "" {
		q = q.Where("category_id = ?", p.CategoryID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count discussions: %w", err)
	}

	var rows []models.Discussion
	err := q.Session(&gorm.Session{}).
		Preload("User").Preload("Category").
		Order(orderFor(p.Sort)).
		Limit(limit).Offset((page - 1) * limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}

	views, err := s.decorate(ctx, viewerID, rows)
	if err != nil {
		return nil, err
	}
	return &DiscussionList{Discussions: views, Pagination: newPagination(page, limit, total)}, nil
}

// decorate attaches authors and the viewer's like and bookmark flags
func (s *Service) decorate(ctx context.Context, viewerID string, rows []models.Discussion) ([]DiscussionView, error) {
	views := make([]DiscussionView, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}

	liked := map[string]bool{}
	bookmarked := map[string]bool{}
	if viewerID != "" {
		ids := make([]string, len(rows))
		for i, d := range rows {
			ids[i] = d.ID
		}

		var likedIDs, bookmarkedIDs []string
		if err := s.db.WithContext(ctx).Model(&models.DiscussionLike{}).
			Where("user_id = ? AND discussion_id IN ?", viewerID, ids).
			Pluck("discussion_id", &likedIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to load likes: %w", err)
		}
		if err := s.db.WithContext(ctx).Model(&models.Bookmark{}).
			Where("user_id = ? AND discussion_id IN ?", viewerID, ids).
			Pluck("discussion_id", &bookmarkedIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to load bookmarks: %w", err)
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
		for _, id := range bookmarkedIDs {
			bookmarked[id] = true
		}
	}

	for _, d := range rows {
		views = append(views, DiscussionView{
			Discussion:   d,
			Author:       d.User.ToAuthor(),
			IsLiked:      liked[d.ID],
			IsBookmarked: bookmarked[d.ID],
		})
	}
	return views, nil
}

func (s *Service) loadDiscussion(ctx context.Context, id string) (*models.Discussion, error) {
	var d models.Discussion
	err := s.db.WithContext(ctx).Preload("User").Preload("Category").First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load discussion: %w", err)
	}
	return &d, nil
}

// GetDiscussion returns one discussion and counts the view
func (s *Service) GetDiscussion(ctx context.Context, viewerID, id string) (*DiscussionView, error) {
	d, err := s.loadDiscussion(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Discussion{}).
		Where("id = ?", id).
		UpdateColumn("view_count", increment("view_count")).Error; err != nil {
		logger.Log.Warn("Failed to count discussion view", logger.WithDiscussionID(id))
	} else {
		d.ViewCount++
	}

	views, err := s.decorate(ctx, viewerID, []models.Discussion{*d})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) checkCategory(ctx context.Context, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND is_active = ?", *categoryID, true).
		Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}
	if n == 0 {
		return invalid("category_id", "category does not exist")
	}
	return nil
}

// CreateDiscussion posts a new discussion as userID
func (s *Service) CreateDiscussion(ctx context.Context, userID string, req CreateDiscussionRequest) (*DiscussionView, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	if req.CategoryID != nil && *req.CategoryID == "" {
		req.CategoryID = nil
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	categoryID := ""
	if req.CategoryID != nil {
		categoryID = *req.CategoryID
	}
	ctx, span := telemetry.GetBusinessEvents().TraceDiscussionCreated(ctx, userID, categoryID)
	defer span.End()

	d := models.Discussion{
		UserID:           userID,
		CategoryID:       req.CategoryID,
		Title:            strings.TrimSpace(req.Title),
		Content:          strings.TrimSpace(req.Content),
		PassageReference: strings.TrimSpace(req.PassageReference),
		PassageText:      strings.TrimSpace(req.PassageText),
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}

	created, err := s.loadDiscussion(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	countAction("discussion_created")
	s.publish(ctx, events.TableDiscussions, events.Insert, discussionRecord{Discussion: *created, Author: created.User.ToAuthor()}, nil)
	s.searcher.Index(ctx, *created)

	logger.Log.Info("Discussion created", logger.WithUserID(userID), logger.WithDiscussionID(d.ID))
	return &DiscussionView{Discussion: *created, Author: created.User.ToAuthor()}, nil
}

// owned loads a discussion and checks that userID wrote it
func (s *Service) owned(ctx context.Context, userID, id string) (*models.Discussion, error) {
	d, err := s.loadDiscussion(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, ErrForbidden
	}
	return d, nil
}

// UpdateDiscussion edits a discussion owned by userID
func (s *Service) UpdateDiscussion(ctx context.Context, userID, id string, req UpdateDiscussionRequest) (*DiscussionView, error) {
	old, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		if err := validateContent(*req.Content); err != nil {
			return nil, err
		}
		updates["content"] = strings.TrimSpace(*req.Content)
	}
	if req.PassageReference != nil {
		updates["passage_reference"] = strings.TrimSpace(*req.PassageReference)
	}
	if req.PassageText != nil {
		updates["passage_text"] = strings.TrimSpace(*req.PassageText)
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			updates["category_id"] = nil
		} else {
			if err := s.checkCategory(ctx, req.CategoryID); err != nil {
				return nil, err
			}
			updates["category_id"] = *req.CategoryID
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Discussion{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update discussion: %w", err)
		}
	}

	updated, err := s.loadDiscussion(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TableDiscussions, events.Update, updated, old)
	s.searcher.Index(ctx, *updated)

	views, err := s.decorate(ctx, userID, []models.Discussion{*updated})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeleteDiscussion soft-deletes a discussion owned by userID
func (s *Service) DeleteDiscussion(ctx context.Context, userID, id string) error {
	old, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Discussion{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete discussion: %w", err)
	}

	countAction("discussion_deleted")
	s.publish(ctx, events.TableDiscussions, events.Delete, map[string]string{"id": id}, old)
	s.searcher.Remove(ctx, id)
	return nil
}

// SearchDiscussions runs a text search and returns hydrated results in rank order
func (s *Service) SearchDiscussions(ctx context.Context, viewerID, q string, page, limit int) (*DiscussionList, string, error) {
	page, limit = util.ClampPage(page, limit, defaultPageSize, maxPageSize)
	if strings.TrimSpace(q) == "" {
		return nil, "", invalid("q", "search query is required")
	}

	result, backend, err := s.searcher.Search(ctx, q, limit, (page-1)*limit)
	if err != nil {
		return nil, "", err
	}

	ids := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		ids = append(ids, h.ID)
	}

	var rows []models.Discussion
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Preload("User").Preload("Category").
			Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, "", fmt.Errorf("failed to load search results: %w", err)
		}
	}

	// keep rank order; ids missing from the database are dropped
	byID := make(map[string]models.Discussion, len(rows))
	for _, d := range rows {
		byID[d.ID] = d
	}
	ordered := make([]models.Discussion, 0, len(rows))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}

	views, err := s.decorate(ctx, viewerID, ordered)
	if err != nil {
		return nil, "", err
	}
	return &DiscussionList{Discussions: views, Pagination: newPagination(page, limit, int64(result.Total))}, backend, nil
}
