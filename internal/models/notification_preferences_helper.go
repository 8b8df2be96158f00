package models

import (
	"gorm.io/gorm"
)

// NotificationPreferencesChecker answers whether a notification type may be
// delivered to a user, based on their UserSettings row
type NotificationPreferencesChecker struct {
	db *gorm.DB
}

// NewNotificationPreferencesChecker creates a new checker with the given database
func NewNotificationPreferencesChecker(db *gorm.DB) *NotificationPreferencesChecker {
	return &NotificationPreferencesChecker{db: db}
}

// GetOrDefault loads settings for a user, or returns defaults without writing
func (c *NotificationPreferencesChecker) GetOrDefault(userID string) UserSettings {
	var settings UserSettings
	if err := c.db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return DefaultSettings(userID)
	}
	return settings
}

// IsEnabled checks if a notification type is enabled for a user
func (c *NotificationPreferencesChecker) IsEnabled(userID string, notificationType string) bool {
	prefs := c.GetOrDefault(userID)
	if !prefs.NotificationsEnabled {
		return false
	}

	switch notificationType {
	case NotificationReadingReminder:
		return prefs.ReminderEnabled
	case NotificationCommunityInteraction:
		return prefs.CommunityEnabled
	default:
		return true
	}
}

// EmailEnabled reports whether the user accepts notification email
func (c *NotificationPreferencesChecker) EmailEnabled(userID string) bool {
	prefs := c.GetOrDefault(userID)
	return prefs.NotificationsEnabled && prefs.EmailEnabled
}
