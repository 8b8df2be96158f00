// Package community implements the discussion board: categories,
// discussions, threaded comments, likes, bookmarks and search.
package community

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/search"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("only the author can change this")
	ErrLocked    = errors.New("discussion is locked")
)

// ValidationError reports an invalid request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Notifier queues a notification for a user
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType string, data map[string]interface{}) error
}

// Searcher indexes discussions and answers text queries
type Searcher interface {
	Index(ctx context.Context, d models.Discussion)
	Remove(ctx context.Context, id string)
	Search(ctx context.Context, q string, limit, offset int) (*search.Result, string, error)
}

// Pagination describes one page of a list
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newPagination(page, limit int, total int64) Pagination {
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// Service owns community reads and writes
type Service struct {
	db        *gorm.DB
	publisher events.Publisher
	notifier  Notifier
	searcher  Searcher
}

// NewService wires the community service. publisher, notifier and searcher
// may be nil; a nil searcher falls back to database search.
func NewService(db *gorm.DB, publisher events.Publisher, notifier Notifier, searcher Searcher) *Service {
	if searcher == nil {
		searcher = search.NewService(nil, db, nil)
	}
	return &Service{
		db:        db,
		publisher: events.OrNop(publisher),
		notifier:  notifier,
		searcher:  searcher,
	}
}

// ListCategories returns active categories in display order
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order, name").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return cats, nil
}

func (s *Service) publish(ctx context.Context, table, event string, record, old interface{}) {
	s.publisher.PublishChange(events.New(ctx, table, event, record, old))
}

func (s *Service) notify(ctx context.Context, recipient, actor string, data map[string]interface{}) {
	if s.notifier == nil || recipient == "" || recipient == actor {
		return
	}
	data["actor_id"] = actor
	if err := s.notifier.Notify(ctx, recipient, models.NotificationCommunityInteraction, data); err != nil {
		logger.Log.Warn("Failed to queue community notification", logger.WithUserID(recipient), zap.Error(err))
	}
}

func countAction(action string) {
	metrics.Get().CommunityActionsTotal.WithLabelValues(action).Inc()
}

// displayName returns the name shown in notification copy
func (s *Service) displayName(ctx context.Context, userID string) string {
	var u models.User
	if err := s.db.WithContext(ctx).Select("username", "display_name").First(&u, "id = ?", userID).Error; err != nil {
		return "누군가"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// decrement clamps a counter column at zero
func decrement(column string) interface{} {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END", column))
}

func increment(column string) interface{} {
	return gorm.Expr(column + " + 1")
}

// readCounter reads one counter column of a row, including soft-deleted rows
func readCounter(tx *gorm.DB, model interface{}, id, column string) (int, error) {
	var n int
	err := tx.Model(model).Unscoped().Where("id = ?", id).Select(column).Scan(&n).Error
	return n, err
}
