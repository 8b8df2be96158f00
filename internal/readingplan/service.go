// Package readingplan serves the annual plan and records reading progress.
package readingplan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/repository"
	"github.com/macchain/backend/internal/stats"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidReading = errors.New("reading id must be between 1 and 4")
	ErrInvalidRange   = errors.New("from date must not be after to date")
)

// planCacheTTL bounds how long a rendered plan day stays in Redis
const planCacheTTL = 24 * time.Hour

// StreakMilestones are the streak lengths that trigger a notification
var StreakMilestones = []int{3, 7, 30, 100, 365}

// Notifier queues a notification for a user
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType string, data map[string]interface{}) error
}

// DayPlan is the plan portion of a day, shared by every reader
type DayPlan struct {
	DayNumber int             `json:"day_number"`
	DateLabel string          `json:"date_label"`
	Readings  []bible.Reading `json:"readings"`
}

// ReadingStatus is a reading merged with one user's completion state
type ReadingStatus struct {
	bible.Reading
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DailyReadings is a plan day as seen by one user
type DailyReadings struct {
	Date           string          `json:"date"`
	DayNumber      int             `json:"day_number"`
	DateLabel      string          `json:"date_label"`
	Readings       []ReadingStatus `json:"readings"`
	CompletedCount int             `json:"completed_count"`
	TotalCount     int             `json:"total_count"`
}

// UserProgress summarizes where a reader is in the plan
type UserProgress struct {
	CurrentDay     int    `json:"current_day"`
	Date           string `json:"date"`
	CompletedToday int    `json:"completed_today"`
	CurrentStreak  int    `json:"current_streak"`
	TotalCompleted int64  `json:"total_completed"`
}

// Service serves plan days and records progress
type Service struct {
	progress  repository.ProgressRepository
	prefs     *models.NotificationPreferencesChecker
	redis     *cache.RedisClient
	publisher events.Publisher
	notifier  Notifier
}

// NewService wires the reading plan service. redis and notifier may be nil.
func NewService(db *gorm.DB, redis *cache.RedisClient, publisher events.Publisher, notifier Notifier) *Service {
	return &Service{
		progress:  repository.NewProgressRepository(db),
		prefs:     models.NewNotificationPreferencesChecker(db),
		redis:     redis,
		publisher: events.OrNop(publisher),
		notifier:  notifier,
	}
}

// DateLabel renders a plan day as a Korean month/day label using a
// non-leap calendar
func DateLabel(day int) string {
	d := bible.DateForDay(2025, day)
	return fmt.Sprintf("%d월 %d일", int(d.Month()), d.Day())
}

// GetDay returns the four readings of a plan day
func (s *Service) GetDay(ctx context.Context, day int) (*DayPlan, error) {
	key := cache.Key("plan", "day", strconv.Itoa(day))

	var cached DayPlan
	if cache.GetJSON(ctx, s.redis, key, &cached) {
		return &cached, nil
	}

	readings, err := bible.ReadingsForDay(day)
	if err != nil {
		return nil, err
	}
	plan := &DayPlan{DayNumber: day, DateLabel: DateLabel(day), Readings: readings}
	cache.SetJSON(ctx, s.redis, key, plan, planCacheTTL)
	return plan, nil
}

// GetForDate returns a date's readings with the user's completion flags
func (s *Service) GetForDate(ctx context.Context, userID, date string) (*DailyReadings, error) {
	t, err := bible.ParseDate(date)
	if err != nil {
		return nil, err
	}
	plan, err := s.GetDay(ctx, bible.DayForDate(t))
	if err != nil {
		return nil, err
	}

	rows, err := s.progress.ForDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	byReading := make(map[int]models.ReadingProgress, len(rows))
	for _, r := range rows {
		byReading[r.ReadingID] = r
	}

	out := &DailyReadings{
		Date:       date,
		DayNumber:  plan.DayNumber,
		DateLabel:  plan.DateLabel,
		Readings:   make([]ReadingStatus, 0, len(plan.Readings)),
		TotalCount: len(plan.Readings),
	}
	for _, r := range plan.Readings {
		status := ReadingStatus{Reading: r}
		if p, ok := byReading[r.ID]; ok && p.IsCompleted {
			status.IsCompleted = true
			status.CompletedAt = p.CompletedAt
			out.CompletedCount++
		}
		out.Readings = append(out.Readings, status)
	}
	return out, nil
}

// Today returns today's readings in the reader's timezone
func (s *Service) Today(ctx context.Context, userID string, now time.Time) (*DailyReadings, error) {
	return s.GetForDate(ctx, userID, s.LocalDate(userID, now))
}

// LocalDate is the reader's calendar date at instant now
func (s *Service) LocalDate(userID string, now time.Time) string {
	loc := s.prefs.GetOrDefault(userID).Location()
	return bible.FormatDate(now.In(loc))
}

// SetCompletion marks one reading done or not done
func (s *Service) SetCompletion(ctx context.Context, userID, date string, readingID int, completed bool) (*models.ReadingProgress, error) {
	t, err := bible.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if readingID < 1 || readingID > bible.ReadingsPerDay {
		return nil, ErrInvalidReading
	}
	reading, err := bible.ReadingByID(bible.DayForDate(t), readingID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.GetBusinessEvents().TraceReadingCompleted(ctx, userID, date, readingID, completed)
	defer span.End()

	before, err := s.progress.ForDate(ctx, userID, date)
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	var existing *models.ReadingProgress
	completedBefore := 0
	for i := range before {
		if before[i].ReadingID == readingID {
			existing = &before[i]
		}
		if before[i].IsCompleted {
			completedBefore++
		}
	}

	now := time.Now().UTC()
	row := &models.ReadingProgress{
		UserID:      userID,
		PlanDate:    date,
		ReadingID:   readingID,
		Book:        reading.Book,
		Chapter:     reading.Chapter,
		IsCompleted: completed,
	}
	if completed {
		row.CompletedAt = &now
	}

	saved, err := s.progress.SetCompletion(ctx, row)
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	wasCompleted := existing != nil && existing.IsCompleted
	switch {
	case completed && !wasCompleted:
		metrics.Get().ReadingsCompletedTotal.Inc()
	case !completed && wasCompleted:
		metrics.Get().ReadingsUndoneTotal.Inc()
	}

	kind := events.Update
	var old interface{}
	if existing == nil {
		kind = events.Insert
	} else {
		old = existing
	}
	ev := events.New(ctx, events.TableReadingProgress, kind, saved, old)
	ev.UserID = userID
	s.publisher.PublishChange(ev)

	if completed && !wasCompleted && completedBefore == 0 {
		s.checkMilestone(ctx, userID, date)
	}

	logger.Log.Debug("Reading progress updated",
		logger.WithUserID(userID),
		logger.WithPlanDate(date),
		logger.WithReadingID(readingID),
		zap.Bool("completed", completed),
	)
	return saved, nil
}

// checkMilestone notifies when the first reading of date extended the
// current streak to a milestone length
func (s *Service) checkMilestone(ctx context.Context, userID, date string) {
	if s.notifier == nil {
		return
	}
	today := s.LocalDate(userID, time.Now())
	if date != today {
		return
	}
	dates, err := s.progress.CompletedDates(ctx, userID)
	if err != nil {
		logger.Log.Warn("Failed to compute streak", logger.WithUserID(userID), zap.Error(err))
		return
	}
	t, _ := bible.ParseDate(today)
	streak := stats.CurrentStreak(dates, t)
	for _, m := range StreakMilestones {
		if streak != m {
			continue
		}
		if err := s.notifier.Notify(ctx, userID, models.NotificationStreakMilestone, map[string]interface{}{"days": streak}); err != nil {
			logger.Log.Warn("Failed to queue streak notification", logger.WithUserID(userID), zap.Error(err))
		}
		return
	}
}

// History returns per-date completion counts in [from, to]
func (s *Service) History(ctx context.Context, userID, from, to string) ([]repository.DateCount, error) {
	fromT, err := bible.ParseDate(from)
	if err != nil {
		return nil, err
	}
	toT, err := bible.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if fromT.After(toT) {
		return nil, ErrInvalidRange
	}
	counts, err := s.progress.CountsByDate(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if counts == nil {
		counts = []repository.DateCount{}
	}
	return counts, nil
}

// UserProgress reports the current day, today's count, streak and total
func (s *Service) UserProgress(ctx context.Context, userID string, now time.Time) (*UserProgress, error) {
	date := s.LocalDate(userID, now)
	t, _ := bible.ParseDate(date)

	today, err := s.progress.ForDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	completedToday := 0
	for _, r := range today {
		if r.IsCompleted {
			completedToday++
		}
	}

	dates, err := s.progress.CompletedDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	total, err := s.progress.CountCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count readings: %w", err)
	}

	return &UserProgress{
		CurrentDay:     bible.DayForDate(t),
		Date:           date,
		CompletedToday: completedToday,
		CurrentStreak:  stats.CurrentStreak(dates, t),
		TotalCompleted: total,
	}, nil
}
