// Package notifications stores in-app notifications and delivers them
// through the queue, the realtime hub and email.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned for notifications the user does not own
var ErrNotFound = errors.New("notification not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Enqueuer schedules a stored notification for delivery
type Enqueuer interface {
	Enqueue(ctx context.Context, notificationID string) error
}

// Pusher delivers realtime messages to connected users
type Pusher interface {
	PushNotification(n models.Notification) bool
	PushUnreadCount(userID string, unread int64)
}

// Service creates and reads notifications
type Service struct {
	db        *gorm.DB
	prefs     *models.NotificationPreferencesChecker
	publisher events.Publisher
	queue     Enqueuer
	pusher    Pusher
}

// NewService creates the notification service. publisher may be nil.
func NewService(db *gorm.DB, publisher events.Publisher) *Service {
	return &Service{
		db:        db,
		prefs:     models.NewNotificationPreferencesChecker(db),
		publisher: events.OrNop(publisher),
	}
}

// SetQueue attaches the delivery queue. Without one, notifications are
// stored and stay pending.
func (s *Service) SetQueue(q Enqueuer) {
	s.queue = q
}

// SetPusher attaches the realtime hub for unread-count updates
func (s *Service) SetPusher(p Pusher) {
	s.pusher = p
}

// Notify stores a notification built from the type's template and queues it.
// Types the user has switched off are skipped without error.
func (s *Service) Notify(ctx context.Context, userID, notificationType string, data map[string]interface{}) error {
	if !s.prefs.IsEnabled(userID, notificationType) {
		metrics.Get().NotificationsTotal.WithLabelValues(notificationType, "skipped").Inc()
		return nil
	}

	content := Render(notificationType, data)
	n := models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    content.Title,
		Message:  content.Message,
		Priority: content.Priority,
		Status:   models.NotificationPending,
	}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
		n.Data = string(raw)
	}

	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	metrics.Get().NotificationsTotal.WithLabelValues(notificationType, models.NotificationPending).Inc()

	event := events.New(ctx, events.TableNotifications, events.Insert, n, nil)
	event.UserID = userID
	s.publisher.PublishChange(event)

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, n.ID); err != nil {
			// the row stays pending and is picked up by RequeuePending
			logger.Log.Warn("Failed to enqueue notification",
				logger.WithNotificationID(n.ID),
				logger.WithUserID(userID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// List returns a user's notifications, newest first, with the total count
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var list []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, total, nil
}

// UnreadCount returns how many of the user's notifications are unread
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read. Marking an already
// read notification keeps its original read time.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}
	if n.ReadAt != nil {
		return &n, nil
	}

	old := n
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&n).Update("read_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n.ReadAt = &now

	event := events.New(ctx, events.TableNotifications, events.Update, n, old)
	event.UserID = userID
	s.publisher.PublishChange(event)
	s.pushUnread(ctx, userID)
	return &n, nil
}

// MarkAllRead marks every unread notification of the user read
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.pushUnread(ctx, userID)
	}
	return result.RowsAffected, nil
}

// RequeuePending enqueues every notification still waiting for delivery,
// oldest first. The server calls it on startup.
func (s *Service) RequeuePending(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("status = ?", models.NotificationPending).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load pending notifications: %w", err)
	}

	queued := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			return queued, fmt.Errorf("failed to requeue notification %s: %w", id, err)
		}
		queued++
	}
	if queued > 0 {
		logger.Log.Info("Requeued pending notifications", zap.Int("count", queued))
	}
	return queued, nil
}

func (s *Service) pushUnread(ctx context.Context, userID string) {
	if s.pusher == nil {
		return
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		logger.Log.Warn("Failed to count unread notifications", logger.WithUserID(userID), zap.Error(err))
		return
	}
	s.pusher.PushUnreadCount(userID, unread)
}
