package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups discussions on the community board
type Category struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
	IsActive    bool   `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Discussion is a community post, optionally anchored to a passage
type Discussion struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string    `gorm:"not null;index" json:"user_id"`
	User             User      `gorm:"foreignKey:UserID" json:"-"`
	CategoryID       *string   `gorm:"index" json:"category_id,omitempty"`
	Category         *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title            string    `gorm:"not null" json:"title"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	PassageReference string    `json:"passage_reference,omitempty"`
	PassageText      string    `gorm:"type:text" json:"passage_text,omitempty"`

	LikeCount    int  `gorm:"default:0" json:"like_count"`
	CommentCount int  `gorm:"default:0" json:"comment_count"`
	ViewCount    int  `gorm:"default:0" json:"view_count"`
	IsPinned     bool `gorm:"default:false" json:"is_pinned"`
	IsLocked     bool `gorm:"default:false" json:"is_locked"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Comment belongs to a discussion; ParentID makes it a reply
type Comment struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DiscussionID string  `gorm:"not null;index" json:"discussion_id"`
	UserID       string  `gorm:"not null;index" json:"user_id"`
	User         User    `gorm:"foreignKey:UserID" json:"-"`
	ParentID     *string `gorm:"index" json:"parent_id,omitempty"`
	Content      string  `gorm:"type:text;not null" json:"content"`
	LikeCount    int     `gorm:"default:0" json:"like_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DiscussionLike is unique per (user, discussion)
type DiscussionLike struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string    `gorm:"not null;uniqueIndex:idx_discussion_like" json:"user_id"`
	DiscussionID string    `gorm:"not null;uniqueIndex:idx_discussion_like" json:"discussion_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CommentLike is unique per (user, comment)
type CommentLike struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_comment_like" json:"user_id"`
	CommentID string    `gorm:"not null;uniqueIndex:idx_comment_like" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is unique per (user, discussion)
type Bookmark struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string     `gorm:"not null;uniqueIndex:idx_bookmark" json:"user_id"`
	DiscussionID string     `gorm:"not null;uniqueIndex:idx_bookmark" json:"discussion_id"`
	Discussion   Discussion `gorm:"foreignKey:DiscussionID" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (d *Discussion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (l *DiscussionLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (l *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}

// DefaultCategories are created by migrations when missing
func DefaultCategories() []Category {
	return []Category{
		{Name: "말씀 나눔", Description: "오늘 읽은 말씀에서 받은 은혜를 나눠요", Icon: "book-open", Color: "#4F46E5", SortOrder: 1, IsActive: true},
		{Name: "질문과 답변", Description: "본문에 대한 궁금증을 함께 풀어요", Icon: "help-circle", Color: "#0EA5E9", SortOrder: 2, IsActive: true},
		{Name: "기도 제목", Description: "서로를 위해 기도해요", Icon: "heart", Color: "#EC4899", SortOrder: 3, IsActive: true},
		{Name: "간증", Description: "삶 속에서 경험한 은혜를 나눠요", Icon: "sun", Color: "#F59E0B", SortOrder: 4, IsActive: true},
		{Name: "자유 게시판", Description: "자유롭게 이야기해요", Icon: "message-circle", Color: "#10B981", SortOrder: 5, IsActive: true},
	}
}
