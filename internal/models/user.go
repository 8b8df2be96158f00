package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a MacChain reader account
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url"`

	PasswordHash string     `gorm:"type:text" json:"-"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Author is the public slice of a User embedded in community responses
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ToAuthor strips private fields
func (u User) ToAuthor() Author {
	return Author{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// PasswordReset is a single-use token emailed to a user
type PasswordReset struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (p *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&PasswordReset{},
		&ReadingProgress{},
		&UserSettings{},
		&Consent{},
		&Category{},
		&Discussion{},
		&Comment{},
		&DiscussionLike{},
		&CommentLike{},
		&Bookmark{},
		&AIAnalysis{},
		&Notification{},
	}
}
