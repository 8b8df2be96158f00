package models

import (
	"time"

	"gorm.io/gorm"
)

// ReadingProgress records whether one of a day's four readings is done.
// PlanDate is a calendar date string (YYYY-MM-DD) in the reader's local day.
type ReadingProgress struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string     `gorm:"not null;uniqueIndex:idx_progress_user_date_reading" json:"user_id"`
	PlanDate    string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_progress_user_date_reading" json:"plan_date"`
	ReadingID   int        `gorm:"not null;uniqueIndex:idx_progress_user_date_reading" json:"reading_id"`
	Book        string     `json:"book"`
	Chapter     int        `json:"chapter"`
	IsCompleted bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the row-change table name stable for realtime clients
func (ReadingProgress) TableName() string {
	return "reading_progress"
}

func (p *ReadingProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
