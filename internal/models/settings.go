package models

import (
	"time"

	"gorm.io/gorm"
)

// Theme, font size and language values accepted in UserSettings
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"

	FontSmall  = "small"
	FontMedium = "medium"
	FontLarge  = "large"
)

// UserSettings holds reader preferences; a missing row means defaults
type UserSettings struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	NotificationsEnabled bool   `json:"notifications_enabled"`
	ReminderEnabled      bool   `json:"reminder_enabled"`
	CommunityEnabled     bool   `json:"community_enabled"`
	EmailEnabled         bool   `json:"email_enabled"`
	ReminderTime         string `gorm:"type:varchar(5);default:'07:00'" json:"reminder_time"`
	Timezone             string `gorm:"default:'Asia/Seoul'" json:"timezone"`
	Theme                string `gorm:"default:'light'" json:"theme"`
	Language             string `gorm:"default:'ko'" json:"language"`
	FontSize             string `gorm:"default:'medium'" json:"font_size"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the preferences a new reader starts with
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:               userID,
		NotificationsEnabled: true,
		ReminderEnabled:      true,
		CommunityEnabled:     true,
		EmailEnabled:         true,
		ReminderTime:         "07:00",
		Timezone:             "Asia/Seoul",
		Theme:                ThemeLight,
		Language:             "ko",
		FontSize:             FontMedium,
	}
}

// Location resolves the reader's timezone, falling back to UTC
func (s UserSettings) Location() *time.Location {
	if loc, err := time.LoadLocation(s.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Consent tracks which agreements a user has accepted
type Consent struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID            string     `gorm:"uniqueIndex;not null" json:"user_id"`
	TermsAccepted     bool       `json:"terms_accepted"`
	PrivacyAccepted   bool       `json:"privacy_accepted"`
	MarketingAccepted bool       `json:"marketing_accepted"`
	AcceptedAt        *time.Time `json:"accepted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

func (c *Consent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
