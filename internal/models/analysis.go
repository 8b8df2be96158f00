package models

import (
	"time"

	"gorm.io/gorm"
)

// Analysis sources
const (
	AnalysisSourceMock      = "mock"
	AnalysisSourceRemote    = "remote"
	AnalysisSourceScheduler = "scheduler"
	AnalysisSourceUser      = "user"
)

// AIAnalysis stores a generated passage or verse analysis. Content holds
// the JSON document returned to clients.
type AIAnalysis struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       *string `gorm:"index" json:"user_id,omitempty"`
	PlanDate     string  `gorm:"type:varchar(10)" json:"plan_date,omitempty"`
	ReadingID    int     `json:"reading_id,omitempty"`
	Book         string  `gorm:"index:idx_analysis_verse" json:"book,omitempty"`
	Chapter      int     `gorm:"index:idx_analysis_verse" json:"chapter,omitempty"`
	Verse        int     `gorm:"index:idx_analysis_verse" json:"verse,omitempty"`
	AnalysisType string  `gorm:"not null" json:"analysis_type"`
	Passage      string  `json:"passage,omitempty"`
	Content      string  `gorm:"type:text;not null" json:"content"`
	Source       string  `gorm:"not null;default:'mock'" json:"source"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName matches the table clients already read from
func (AIAnalysis) TableName() string {
	return "ai_analysis"
}

func (a *AIAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}
