package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reminderBatchSize = 500

// Notifier queues a notification for a user
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType string, data map[string]interface{}) error
}

// ReminderScheduler sends a reading reminder at each user's reminder time
// when they have not completed a reading that day
type ReminderScheduler struct {
	db       *gorm.DB
	notifier Notifier
	interval time.Duration
	now      func() time.Time

	// user id -> local date of the last reminder
	mu   sync.Mutex
	sent map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReminderScheduler creates the reminder scheduler
func NewReminderScheduler(db *gorm.DB, notifier Notifier) *ReminderScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReminderScheduler{
		db:       db,
		notifier: notifier,
		interval: 30 * time.Second,
		now:      time.Now,
		sent:     make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins checking reminder times
func (s *ReminderScheduler) Start() {
	logger.Log.Info("Starting reading reminder scheduler")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop stops the scheduler and waits for a check in progress
func (s *ReminderScheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Log.Info("Reading reminder scheduler stopped")
}

func (s *ReminderScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunAt(s.ctx, s.now()); err != nil && s.ctx.Err() == nil {
				logger.Log.Warn("Reminder check failed", zap.Error(err))
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// RunAt sends reminders to users whose local reminder time is the minute
// of now. It returns how many reminders were queued. Each user gets at
// most one reminder per local day.
func (s *ReminderScheduler) RunAt(ctx context.Context, now time.Time) (int, error) {
	ctx, span := telemetry.GetBusinessEvents().TraceSchedulerRun(ctx, "reading_reminder", bible.DayForDate(now))
	defer span.End()

	settings := make(map[string]models.UserSettings)
	var rows []models.UserSettings
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		telemetry.RecordServiceError(span, err)
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, r := range rows {
		settings[r.UserID] = r
	}

	queued := 0
	var users []models.User
	err := s.db.WithContext(ctx).Select("id").FindInBatches(&users, reminderBatchSize, func(tx *gorm.DB, batch int) error {
		for _, u := range users {
			prefs, ok := settings[u.ID]
			if !ok {
				prefs = models.DefaultSettings(u.ID)
			}
			sent, err := s.remind(ctx, prefs, now)
			if err != nil {
				return err
			}
			if sent {
				queued++
			}
		}
		return nil
	}).Error
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return queued, err
	}

	if queued > 0 {
		logger.Log.Info("Reading reminders queued", zap.Int("count", queued))
	}
	return queued, nil
}

func (s *ReminderScheduler) remind(ctx context.Context, prefs models.UserSettings, now time.Time) (bool, error) {
	if !prefs.NotificationsEnabled || !prefs.ReminderEnabled {
		return false, nil
	}
	local := now.In(prefs.Location())
	if local.Format("15:04") != prefs.ReminderTime {
		return false, nil
	}
	date := local.Format(bible.DateLayout)

	s.mu.Lock()
	already := s.sent[prefs.UserID] == date
	s.mu.Unlock()
	if already {
		return false, nil
	}

	var completed int64
	err := s.db.WithContext(ctx).Model(&models.ReadingProgress{}).
		Where("user_id = ? AND plan_date = ? AND is_completed = ?", prefs.UserID, date, true).
		Count(&completed).Error
	if err != nil {
		return false, fmt.Errorf("failed to check progress: %w", err)
	}
	if completed > 0 {
		return false, nil
	}

	if err := s.notifier.Notify(ctx, prefs.UserID, models.NotificationReadingReminder, map[string]interface{}{"date": date}); err != nil {
		logger.Log.Warn("Failed to queue reading reminder", logger.WithUserID(prefs.UserID), zap.Error(err))
		return false, nil
	}

	s.mu.Lock()
	s.sent[prefs.UserID] = date
	s.mu.Unlock()
	return true, nil
}
