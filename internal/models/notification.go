package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types
const (
	NotificationReadingReminder      = "reading_reminder"
	NotificationStreakMilestone      = "streak_milestone"
	NotificationWeeklySummary        = "weekly_summary"
	NotificationAIAnalysisReady      = "ai_analysis_ready"
	NotificationCommunityInteraction = "community_interaction"
)

// Notification priorities
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Delivery states
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an in-app message queued for delivery
type Notification struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID   string `gorm:"not null;index" json:"user_id"`
	Type     string `gorm:"not null;index" json:"type"`
	Title    string `gorm:"not null" json:"title"`
	Message  string `gorm:"type:text" json:"message"`
	Data     string `gorm:"type:text" json:"data,omitempty"`
	Priority string `gorm:"default:'normal'" json:"priority"`
	Status   string `gorm:"default:'pending';index" json:"status"`
	Attempts int    `gorm:"default:0" json:"attempts"`

	ReadAt    *time.Time `json:"read_at,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
