package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/macchain/backend/internal/email"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/queue"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deliverer sends queued notifications: email first for high-priority
// types, then a realtime push to the user's open connections.
type Deliverer struct {
	db     *gorm.DB
	prefs  *models.NotificationPreferencesChecker
	pusher Pusher
	sender email.Sender
}

var _ queue.Deliverer = (*Deliverer)(nil)

// NewDeliverer creates a deliverer. pusher and sender may be nil.
func NewDeliverer(db *gorm.DB, pusher Pusher, sender email.Sender) *Deliverer {
	return &Deliverer{
		db:     db,
		prefs:  models.NewNotificationPreferencesChecker(db),
		pusher: pusher,
		sender: sender,
	}
}

// Deliver runs one delivery attempt
func (d *Deliverer) Deliver(ctx context.Context, notificationID string, attempt int) error {
	var n models.Notification
	err := d.db.WithContext(ctx).First(&n, "id = ?", notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Debug("Queued notification no longer exists", logger.WithNotificationID(notificationID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Status == models.NotificationSent {
		return nil
	}

	ctx, span := telemetry.GetBusinessEvents().TraceNotificationDelivery(ctx, n.ID, n.Type, attempt)
	defer span.End()

	if err := d.sendEmail(ctx, n); err != nil {
		telemetry.RecordServiceError(span, err)
		d.db.WithContext(ctx).Model(&n).Update("attempts", attempt)
		return err
	}

	now := time.Now().UTC()
	err = d.db.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
		"status":   models.NotificationSent,
		"attempts": attempt,
		"sent_at":  now,
	}).Error
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	n.Status = models.NotificationSent
	n.Attempts = attempt
	n.SentAt = &now

	metrics.Get().NotificationsTotal.WithLabelValues(n.Type, models.NotificationSent).Inc()

	if d.pusher != nil && d.pusher.PushNotification(n) {
		var unread int64
		if err := d.db.WithContext(ctx).Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", n.UserID).
			Count(&unread).Error; err == nil {
			d.pusher.PushUnreadCount(n.UserID, unread)
		}
	}
	return nil
}

// Fail marks a notification that exhausted its attempts
func (d *Deliverer) Fail(ctx context.Context, notificationID string, cause error) {
	var n models.Notification
	if err := d.db.WithContext(ctx).First(&n, "id = ?", notificationID).Error; err != nil {
		logger.Log.Warn("Failed to load notification to mark failed", logger.WithNotificationID(notificationID), zap.Error(err))
		return
	}
	if err := d.db.WithContext(ctx).Model(&n).Update("status", models.NotificationFailed).Error; err != nil {
		logger.Log.Warn("Failed to mark notification failed", logger.WithNotificationID(notificationID), zap.Error(err))
		return
	}
	metrics.Get().NotificationsTotal.WithLabelValues(n.Type, models.NotificationFailed).Inc()
	logger.Log.Warn("Notification delivery failed",
		logger.WithNotificationID(notificationID),
		logger.WithUserID(n.UserID),
		zap.Error(cause),
	)
}

func (d *Deliverer) sendEmail(ctx context.Context, n models.Notification) error {
	if d.sender == nil || n.Priority != models.PriorityHigh || !d.prefs.EmailEnabled(n.UserID) {
		return nil
	}
	var user models.User
	if err := d.db.WithContext(ctx).Select("id", "email").First(&user, "id = ?", n.UserID).Error; err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user.Email == "" {
		return nil
	}
	if err := d.sender.SendNotification(ctx, user.Email, n.Title, n.Message); err != nil {
		return fmt.Errorf("failed to email notification: %w", err)
	}
	return nil
}
