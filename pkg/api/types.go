package api

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// User is an account as returned by the API
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// Author is the public projection of a user
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileUpdate changes only the fields that are set
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// Reading is one passage of a plan day
type Reading struct {
	ID         int    `json:"id"`
	Book       string `json:"book"`
	BookKorean string `json:"book_korean"`
	Chapter    int    `json:"chapter"`
	VerseStart *int   `json:"verse_start,omitempty"`
	VerseEnd   *int   `json:"verse_end,omitempty"`
}

// PlanDay is the plan content of one day, without progress
type PlanDay struct {
	DayNumber int       `json:"day_number"`
	DateLabel string    `json:"date_label"`
	Readings  []Reading `json:"readings"`
}

// ReadingStatus is a reading with the user's completion flag
type ReadingStatus struct {
	Reading
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DailyReadings is a date's plan merged with the user's progress
type DailyReadings struct {
	Date           string          `json:"date"`
	DayNumber      int             `json:"day_number"`
	DateLabel      string          `json:"date_label"`
	Readings       []ReadingStatus `json:"readings"`
	CompletedCount int             `json:"completed_count"`
	TotalCount     int             `json:"total_count"`
}

// ReadingProgress is one stored completion row
type ReadingProgress struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	PlanDate    string     `json:"plan_date"`
	ReadingID   int        `json:"reading_id"`
	Book        string     `json:"book"`
	Chapter     int        `json:"chapter"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DateCount is the number of completed readings on a date
type DateCount struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

type ProgressHistory struct {
	From    string      `json:"from"`
	To      string      `json:"to"`
	History []DateCount `json:"history"`
}

// UserProgress summarises the user's position in the plan
type UserProgress struct {
	CurrentDay     int    `json:"current_day"`
	Date           string `json:"date"`
	CompletedToday int    `json:"completed_today"`
	CurrentStreak  int    `json:"current_streak"`
	TotalCompleted int64  `json:"total_completed"`
}

type Totals struct {
	Days     int     `json:"days"`
	Chapters int     `json:"chapters"`
	Progress float64 `json:"progress"`
}

type Streak struct {
	Days      int    `json:"days"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type DayProgress struct {
	Date      string  `json:"date"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ReadingStats is the 30-day statistics summary
type ReadingStats struct {
	TotalDaysRead     int           `json:"total_days_read"`
	TotalChaptersRead int           `json:"total_chapters_read"`
	AverageProgress   float64       `json:"average_progress"`
	PerfectDays       int           `json:"perfect_days"`
	ConsecutiveDays   int           `json:"consecutive_days"`
	CurrentMonth      Totals        `json:"current_month"`
	CurrentYear       Totals        `json:"current_year"`
	LongestStreak     Streak        `json:"longest_streak"`
	DailyProgress     []DayProgress `json:"daily_progress"`
}

type BookCount struct {
	Book  string `json:"book"`
	Count int    `json:"count"`
}

type LastReading struct {
	Book        string     `json:"book"`
	Chapter     int        `json:"chapter"`
	PlanDate    string     `json:"plan_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Overview struct {
	Period         int          `json:"period"`
	TotalReadings  int          `json:"total_readings"`
	ActiveDays     int          `json:"active_days"`
	CompletionRate float64      `json:"completion_rate"`
	CurrentStreak  int          `json:"current_streak"`
	LastReading    *LastReading `json:"last_reading"`
	TopBooks       []BookCount  `json:"top_books"`
}

type Patterns struct {
	Period  int     `json:"period"`
	Hourly  [24]int `json:"hourly"`
	Weekly  [7]int  `json:"weekly"`
	Monthly [12]int `json:"monthly"`
}

type Growth struct {
	Period           int     `json:"period"`
	CurrentReadings  int     `json:"current_readings"`
	PreviousReadings int     `json:"previous_readings"`
	ReadingGrowth    float64 `json:"reading_growth"`
	CurrentRate      float64 `json:"current_completion_rate"`
	PreviousRate     float64 `json:"previous_completion_rate"`
	Insight          string  `json:"insight"`
}

type Settings struct {
	NotificationsEnabled bool   `json:"notifications_enabled"`
	ReminderEnabled      bool   `json:"reminder_enabled"`
	CommunityEnabled     bool   `json:"community_enabled"`
	EmailEnabled         bool   `json:"email_enabled"`
	ReminderTime         string `json:"reminder_time"`
	Timezone             string `json:"timezone"`
	Theme                string `json:"theme"`
	Language             string `json:"language"`
	FontSize             string `json:"font_size"`
}

// SettingsUpdate is a partial settings change
type SettingsUpdate map[string]interface{}

type Consent struct {
	TermsAccepted     bool       `json:"terms_accepted"`
	PrivacyAccepted   bool       `json:"privacy_accepted"`
	MarketingAccepted bool       `json:"marketing_accepted"`
	AcceptedAt        *time.Time `json:"accepted_at,omitempty"`
}

type ConsentUpdate struct {
	TermsAccepted     *bool `json:"terms_accepted,omitempty"`
	PrivacyAccepted   *bool `json:"privacy_accepted,omitempty"`
	MarketingAccepted *bool `json:"marketing_accepted,omitempty"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	SortOrder   int    `json:"sort_order"`
}

// Discussion is a community post with the viewer's flags
type Discussion struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	CategoryID       *string   `json:"category_id,omitempty"`
	Category         *Category `json:"category,omitempty"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	PassageReference string    `json:"passage_reference,omitempty"`
	PassageText      string    `json:"passage_text,omitempty"`
	LikeCount        int       `json:"like_count"`
	CommentCount     int       `json:"comment_count"`
	ViewCount        int       `json:"view_count"`
	IsPinned         bool      `json:"is_pinned"`
	IsLocked         bool      `json:"is_locked"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Author           Author    `json:"author"`
	IsLiked          bool      `json:"is_liked"`
	IsBookmarked     bool      `json:"is_bookmarked"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type DiscussionList struct {
	Discussions []Discussion `json:"discussions"`
	Pagination  Pagination   `json:"pagination"`
}

// ListParams filter ListDiscussions. Zero values use server defaults.
type ListParams struct {
	CategoryID string
	Page       int
	Limit      int
	Sort       string
}

type DiscussionInput struct {
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	PassageReference string  `json:"passage_reference,omitempty"`
	PassageText      string  `json:"passage_text,omitempty"`
	CategoryID       *string `json:"category_id,omitempty"`
}

type DiscussionUpdate struct {
	Title            *string `json:"title,omitempty"`
	Content          *string `json:"content,omitempty"`
	PassageReference *string `json:"passage_reference,omitempty"`
	PassageText      *string `json:"passage_text,omitempty"`
	CategoryID       *string `json:"category_id,omitempty"`
}

// Comment is a comment with its replies
type Comment struct {
	ID           string     `json:"id"`
	DiscussionID string     `json:"discussion_id"`
	UserID       string     `json:"user_id"`
	ParentID     *string    `json:"parent_id,omitempty"`
	Content      string     `json:"content"`
	LikeCount    int        `json:"like_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Author       Author     `json:"author"`
	IsLiked      bool       `json:"is_liked"`
	Replies      []*Comment `json:"replies"`
}

type LikeResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
	Count      int  `json:"count"`
}

type PassageAnalysis struct {
	ID           string    `json:"id"`
	Passage      string    `json:"passage"`
	AnalysisType string    `json:"analysis_type"`
	Analysis     string    `json:"analysis"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
}

type WordAnalysis struct {
	Original        string `json:"original"`
	Transliteration string `json:"transliteration"`
	Meaning         string `json:"meaning"`
	Grammar         string `json:"grammar"`
	Significance    string `json:"significance"`
}

type VerseAnalysis struct {
	Book                 string         `json:"book"`
	Chapter              int            `json:"chapter"`
	Verse                int            `json:"verse"`
	HebrewText           string         `json:"hebrew_text"`
	WordAnalysis         []WordAnalysis `json:"word_analysis"`
	OverallMeaning       string         `json:"overall_meaning"`
	CulturalBackground   string         `json:"cultural_background"`
	PracticalApplication string         `json:"practical_application"`
	KeyWords             []string       `json:"key_words"`
}

type SaveAnalysisRequest struct {
	PlanDate     string              `json:"plan_date"`
	ReadingID    int                 `json:"reading_id"`
	AnalysisType string              `json:"analysis_type"`
	Data         jsoniter.RawMessage `json:"data"`
}

type SavedAnalysis struct {
	ID           string              `json:"id"`
	PlanDate     string              `json:"plan_date"`
	ReadingID    int                 `json:"reading_id"`
	AnalysisType string              `json:"analysis_type"`
	Data         jsoniter.RawMessage `json:"data"`
	CreatedAt    time.Time           `json:"created_at"`
}

type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Data      string     `json:"data,omitempty"`
	Priority  string     `json:"priority"`
	Status    string     `json:"status"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Unread        int64          `json:"unread"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

// ErrorResponse is the server's error body
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
