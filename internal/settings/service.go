// Package settings manages reader preferences and consent records.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/util"
	"gorm.io/gorm"
)

// FieldError reports an invalid settings field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpdateSettingsRequest is a partial settings update; nil fields are left alone
type UpdateSettingsRequest struct {
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	ReminderEnabled      *bool   `json:"reminder_enabled"`
	CommunityEnabled     *bool   `json:"community_enabled"`
	EmailEnabled         *bool   `json:"email_enabled"`
	ReminderTime         *string `json:"reminder_time"`
	Timezone             *string `json:"timezone"`
	Theme                *string `json:"theme"`
	Language             *string `json:"language"`
	FontSize             *string `json:"font_size"`
}

// UpdateConsentRequest is a partial consent update
type UpdateConsentRequest struct {
	TermsAccepted     *bool `json:"terms_accepted"`
	PrivacyAccepted   *bool `json:"privacy_accepted"`
	MarketingAccepted *bool `json:"marketing_accepted"`
}

var languages = map[string]bool{"ko": true, "en": true}

// Service reads and writes settings and consent rows
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a settings service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// GetSettings returns the stored row or defaults when none exists
func (s *Service) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	var row models.UserSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := models.DefaultSettings(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &row, nil
}

// Validate checks every non-nil field
func (r UpdateSettingsRequest) Validate() error {
	if r.ReminderTime != nil && !util.IsValidReminderTime(*r.ReminderTime) {
		return &FieldError{Field: "reminder_time", Message: "must be HH:MM"}
	}
	if r.Theme != nil {
		switch *r.Theme {
		case models.ThemeLight, models.ThemeDark, models.ThemeSystem:
		default:
			return &FieldError{Field: "theme", Message: "must be light, dark or system"}
		}
	}
	if r.FontSize != nil {
		switch *r.FontSize {
		case models.FontSmall, models.FontMedium, models.FontLarge:
		default:
			return &FieldError{Field: "font_size", Message: "must be small, medium or large"}
		}
	}
	if r.Language != nil && !languages[*r.Language] {
		return &FieldError{Field: "language", Message: "unsupported language"}
	}
	if r.Timezone != nil {
		if _, err := time.LoadLocation(*r.Timezone); err != nil || *r.Timezone == "" {
			return &FieldError{Field: "timezone", Message: "unknown timezone"}
		}
	}
	return nil
}

// UpdateSettings applies a partial update, creating the row from defaults
// on first write
func (s *Service) UpdateSettings(ctx context.Context, userID string, req UpdateSettingsRequest) (*models.UserSettings, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(&current.NotificationsEnabled, req.NotificationsEnabled)
	apply(&current.ReminderEnabled, req.ReminderEnabled)
	apply(&current.CommunityEnabled, req.CommunityEnabled)
	apply(&current.EmailEnabled, req.EmailEnabled)
	apply(&current.ReminderTime, req.ReminderTime)
	apply(&current.Timezone, req.Timezone)
	apply(&current.Theme, req.Theme)
	apply(&current.Language, req.Language)
	apply(&current.FontSize, req.FontSize)

	err = s.db.WithContext(ctx).Save(current).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return s.GetSettings(ctx, userID)
}

// GetConsent returns the consent row, or an unaccepted zero row
func (s *Service) GetConsent(ctx context.Context, userID string) (*models.Consent, error) {
	var row models.Consent
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Consent{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load consent: %w", err)
	}
	return &row, nil
}

// UpdateConsent records accepted agreements. accepted_at is stamped the
// first time terms are accepted.
func (s *Service) UpdateConsent(ctx context.Context, userID string, req UpdateConsentRequest) (*models.Consent, error) {
	current, err := s.GetConsent(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(&current.TermsAccepted, req.TermsAccepted)
	apply(&current.PrivacyAccepted, req.PrivacyAccepted)
	apply(&current.MarketingAccepted, req.MarketingAccepted)

	if current.TermsAccepted && current.AcceptedAt == nil {
		now := s.now().UTC()
		current.AcceptedAt = &now
	}

	err = s.db.WithContext(ctx).Save(current).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save consent: %w", err)
	}
	return s.GetConsent(ctx, userID)
}

func apply[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
