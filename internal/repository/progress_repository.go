package repository

import (
	"context"
	"errors"
	"time"

	"github.com/macchain/backend/internal/models"
	"gorm.io/gorm"
)

// DateCount is the number of completed readings on one plan date
type DateCount struct {
	PlanDate  string `json:"date"`
	Completed int    `json:"completed"`
}

// BookCount is how many completed readings came from one book
type BookCount struct {
	Book  string `json:"book"`
	Count int    `json:"count"`
}

// ProgressRepository stores per-reading completion rows
type ProgressRepository interface {
	// SetCompletion upserts a row. Completing an already completed reading
	// keeps its original completed_at.
	SetCompletion(ctx context.Context, p *models.ReadingProgress) (*models.ReadingProgress, error)
	ForDate(ctx context.Context, userID, planDate string) ([]models.ReadingProgress, error)
	CompletedBetween(ctx context.Context, userID, fromDate, toDate string) ([]models.ReadingProgress, error)
	CountsByDate(ctx context.Context, userID, fromDate, toDate string) ([]DateCount, error)
	CompletedDates(ctx context.Context, userID string) ([]string, error)
	CountCompleted(ctx context.Context, userID string) (int64, error)
	CompletedAtBetween(ctx context.Context, userID string, from, to time.Time) ([]models.ReadingProgress, error)
	TopBooks(ctx context.Context, userID, fromDate, toDate string, limit int) ([]BookCount, error)
	LastCompleted(ctx context.Context, userID string) (*models.ReadingProgress, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new reading progress repository
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) SetCompletion(ctx context.Context, p *models.ReadingProgress) (*models.ReadingProgress, error) {
	if p == nil || p.UserID == "" || p.PlanDate == "" {
		return nil, ErrInvalidInput
	}

	var out models.ReadingProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("user_id = ? AND plan_date = ? AND reading_id = ?", p.UserID, p.PlanDate, p.ReadingID).
			First(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = *p
			if !out.IsCompleted {
				out.CompletedAt = nil
			}
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}

		switch {
		case p.IsCompleted && out.IsCompleted:
			// idempotent; first completion time wins
			return nil
		case p.IsCompleted:
			out.IsCompleted = true
			out.CompletedAt = p.CompletedAt
		default:
			out.IsCompleted = false
			out.CompletedAt = nil
		}
		out.Book, out.Chapter = p.Book, p.Chapter
		return tx.Model(&out).Select("is_completed", "completed_at", "book", "chapter", "updated_at").Updates(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *progressRepository) ForDate(ctx context.Context, userID, planDate string) ([]models.ReadingProgress, error) {
	var rows []models.ReadingProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_date = ?", userID, planDate).
		Order("reading_id").
		Find(&rows).Error
	return rows, err
}

func (r *progressRepository) CompletedBetween(ctx context.Context, userID, fromDate, toDate string) ([]models.ReadingProgress, error) {
	var rows []models.ReadingProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ? AND plan_date >= ? AND plan_date <= ?", userID, true, fromDate, toDate).
		Order("plan_date, reading_id").
		Find(&rows).Error
	return rows, err
}

func (r *progressRepository) CountsByDate(ctx context.Context, userID, fromDate, toDate string) ([]DateCount, error) {
	var out []DateCount
	err := r.db.WithContext(ctx).Model(&models.ReadingProgress{}).
		Select("plan_date, COUNT(*) AS completed").
		Where("user_id = ? AND is_completed = ? AND plan_date >= ? AND plan_date <= ?", userID, true, fromDate, toDate).
		Group("plan_date").
		Order("plan_date").
		Scan(&out).Error
	return out, err
}

// CompletedDates lists distinct plan dates with at least one completed
// reading, newest first.
func (r *progressRepository) CompletedDates(ctx context.Context, userID string) ([]string, error) {
	var dates []string
	err := r.db.WithContext(ctx).Model(&models.ReadingProgress{}).
		Distinct("plan_date").
		Where("user_id = ? AND is_completed = ?", userID, true).
		Order("plan_date DESC").
		Pluck("plan_date", &dates).Error
	return dates, err
}

func (r *progressRepository) CountCompleted(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ReadingProgress{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&n).Error
	return n, err
}

func (r *progressRepository) CompletedAtBetween(ctx context.Context, userID string, from, to time.Time) ([]models.ReadingProgress, error) {
	var rows []models.ReadingProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ? AND completed_at >= ? AND completed_at < ?", userID, true, from, to).
		Find(&rows).Error
	return rows, err
}

func (r *progressRepository) TopBooks(ctx context.Context, userID, fromDate, toDate string, limit int) ([]BookCount, error) {
	var out []BookCount
	err := r.db.WithContext(ctx).Model(&models.ReadingProgress{}).
		Select("book, COUNT(*) AS count").
		Where("user_id = ? AND is_completed = ? AND plan_date >= ? AND plan_date <= ?", userID, true, fromDate, toDate).
		Group("book").
		Order("count DESC, book").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *progressRepository) LastCompleted(ctx context.Context, userID string) (*models.ReadingProgress, error) {
	var row models.ReadingProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Order("completed_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
