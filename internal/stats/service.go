// Package stats computes reading statistics from progress rows.
package stats

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/repository"
	"gorm.io/gorm"
)

const (
	baseWindowDays = 30
	dailyWindow    = 7
	topBooksLimit  = 5
)

// DefaultInsight is used when no growth band applies
const DefaultInsight = "성경 읽기 여정에서 꾸준한 성장을 보이고 있습니다. 계속해서 하나님의 말씀과 함께하세요!"

// Periods accepted by the period-based reports
var Periods = []int{7, 30, 90, 365}

// NormalizePeriod maps anything outside Periods to 30
func NormalizePeriod(period int) int {
	for _, p := range Periods {
		if p == period {
			return period
		}
	}
	return 30
}

// Totals is a days/chapters/progress triple for a calendar range
type Totals struct {
	Days     int     `json:"days"`
	Chapters int     `json:"chapters"`
	Progress float64 `json:"progress"`
}

// DayProgress is one day of the recent daily chart
type DayProgress struct {
	Date      string  `json:"date"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// BaseStats is the dashboard summary
type BaseStats struct {
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

// LastReading is the most recently completed passage
type LastReading struct {
	Book        string     `json:"book"`
	Chapter     int        `json:"chapter"`
	PlanDate    string     `json:"plan_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Overview summarizes a period
type Overview struct {
	Period         int                    `json:"period"`
	TotalReadings  int                    `json:"total_readings"`
	ActiveDays     int                    `json:"active_days"`
	CompletionRate float64                `json:"completion_rate"`
	CurrentStreak  int                    `json:"current_streak"`
	LastReading    *LastReading           `json:"last_reading"`
	TopBooks       []repository.BookCount `json:"top_books"`
}

// Patterns buckets completions by time of day, weekday and month
type Patterns struct {
	Period  int     `json:"period"`
	Hourly  [24]int `json:"hourly"`
	Weekly  [7]int  `json:"weekly"`
	Monthly [12]int `json:"monthly"`
}

// Growth compares a period with the one before it
type Growth struct {
	Period           int     `json:"period"`
	CurrentReadings  int     `json:"current_readings"`
	PreviousReadings int     `json:"previous_readings"`
	ReadingGrowth    float64 `json:"reading_growth"`
	CurrentRate      float64 `json:"current_completion_rate"`
	PreviousRate     float64 `json:"previous_completion_rate"`
	Insight          string  `json:"insight"`
}

// JourneyDay is one day of the journey timeline
type JourneyDay struct {
	Date           string   `json:"date"`
	Readings       int      `json:"readings"`
	CompletionRate float64  `json:"completion_rate"`
	Books          []string `json:"books"`
}

// Service computes statistics for one reader at a time
type Service struct {
	progress repository.ProgressRepository
	prefs    *models.NotificationPreferencesChecker
}

// NewService creates a stats service
func NewService(db *gorm.DB) *Service {
	return &Service{
		progress: repository.NewProgressRepository(db),
		prefs:    models.NewNotificationPreferencesChecker(db),
	}
}

func (s *Service) today(userID string, now time.Time) (time.Time, *time.Location) {
	loc := s.prefs.GetOrDefault(userID).Location()
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), loc
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func percentOf(completed, days int) float64 {
	if days <= 0 {
		return 0
	}
	return round1(float64(completed) / float64(days*bible.ReadingsPerDay) * 100)
}

func (s *Service) totals(ctx context.Context, userID string, from, to time.Time) (Totals, []repository.DateCount, error) {
	counts, err := s.progress.CountsByDate(ctx, userID, bible.FormatDate(from), bible.FormatDate(to))
	if err != nil {
		return Totals{}, nil, fmt.Errorf("failed to count readings: %w", err)
	}
	t := Totals{Days: len(counts)}
	for _, c := range counts {
		t.Chapters += c.Completed
	}
	elapsed := int(to.Sub(from).Hours()/24) + 1
	t.Progress = percentOf(t.Chapters, elapsed)
	return t, counts, nil
}

// Base computes the dashboard summary over the last 30 days
func (s *Service) Base(ctx context.Context, userID string, now time.Time) (*BaseStats, error) {
	today, _ := s.today(userID, now)

	window, counts, err := s.totals(ctx, userID, today.AddDate(0, 0, -(baseWindowDays-1)), today)
	if err != nil {
		return nil, err
	}
	out := &BaseStats{
		TotalDaysRead:     window.Days,
		TotalChaptersRead: window.Chapters,
		DailyProgress:     make([]DayProgress, 0, dailyWindow),
	}

	byDate := make(map[string]int, len(counts))
	var pctSum float64
	for _, c := range counts {
		byDate[c.PlanDate] = c.Completed
		pctSum += float64(min(c.Completed, bible.ReadingsPerDay)) / bible.ReadingsPerDay * 100
		if c.Completed >= bible.ReadingsPerDay {
			out.PerfectDays++
		}
	}
	if len(counts) > 0 {
		out.AverageProgress = round1(pctSum / float64(len(counts)))
	}

	for i := dailyWindow - 1; i >= 0; i-- {
		d := bible.FormatDate(today.AddDate(0, 0, -i))
		done := byDate[d]
		out.DailyProgress = append(out.DailyProgress, DayProgress{
			Date:      d,
			Completed: done,
			Total:     bible.ReadingsPerDay,
			Percent:   round1(float64(done) / bible.ReadingsPerDay * 100),
		})
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if out.CurrentMonth, _, err = s.totals(ctx, userID, monthStart, today); err != nil {
		return nil, err
	}
	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if out.CurrentYear, _, err = s.totals(ctx, userID, yearStart, today); err != nil {
		return nil, err
	}

	dates, err := s.progress.CompletedDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	out.ConsecutiveDays = CurrentStreak(dates, today)
	out.LongestStreak = LongestStreak(dates)
	return out, nil
}

// Overview summarizes the last period days
func (s *Service) Overview(ctx context.Context, userID string, period int, now time.Time) (*Overview, error) {
	period = NormalizePeriod(period)
	today, _ := s.today(userID, now)
	from, to := bible.FormatDate(today.AddDate(0, 0, -(period-1))), bible.FormatDate(today)

	counts, err := s.progress.CountsByDate(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count readings: %w", err)
	}
	out := &Overview{Period: period, ActiveDays: len(counts)}
	for _, c := range counts {
		out.TotalReadings += c.Completed
	}
	out.CompletionRate = percentOf(out.TotalReadings, period)

	dates, err := s.progress.CompletedDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	out.CurrentStreak = CurrentStreak(dates, today)

	last, err := s.progress.LastCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load last reading: %w", err)
	}
	if last != nil {
		out.LastReading = &LastReading{Book: last.Book, Chapter: last.Chapter, PlanDate: last.PlanDate, CompletedAt: last.CompletedAt}
	}

	out.TopBooks, err = s.progress.TopBooks(ctx, userID, from, to, topBooksLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top books: %w", err)
	}
	if out.TopBooks == nil {
		out.TopBooks = []repository.BookCount{}
	}
	return out, nil
}

// Patterns buckets completions in the reader's timezone
func (s *Service) Patterns(ctx context.Context, userID string, period int, now time.Time) (*Patterns, error) {
	period = NormalizePeriod(period)
	_, loc := s.today(userID, now)

	rows, err := s.progress.CompletedAtBetween(ctx, userID, now.AddDate(0, 0, -period), now.Add(time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}
	out := &Patterns{Period: period}
	for _, r := range rows {
		if r.CompletedAt == nil {
			continue
		}
		t := r.CompletedAt.In(loc)
		out.Hourly[t.Hour()]++
		out.Weekly[int(t.Weekday())]++
		out.Monthly[int(t.Month())-1]++
	}
	return out, nil
}

// GrowthPercent is (cur-prev)/prev*100, 100 when starting from zero, and
// 0 when both periods are empty
func GrowthPercent(cur, prev int) float64 {
	switch {
	case prev == 0 && cur > 0:
		return 100
	case prev == 0:
		return 0
	default:
		return round1(float64(cur-prev) / float64(prev) * 100)
	}
}

// Insight picks encouragement text for a growth band
func Insight(cur, prev int, growth float64) string {
	switch {
	case cur == 0 && prev == 0:
		return "아직 이 기간의 읽기 기록이 없습니다. 오늘 첫 말씀으로 시작해보세요!"
	case growth >= 50:
		return "지난 기간보다 훨씬 많이 읽고 있습니다! 놀라운 성장입니다."
	case growth >= 10:
		return "꾸준히 성장하고 있습니다. 좋은 흐름을 이어가세요!"
	case growth <= -10:
		return "지난 기간보다 읽기가 줄었습니다. 작은 목표부터 다시 시작해보세요."
	default:
		return DefaultInsight
	}
}

// Growth compares the last period days against the period before
func (s *Service) Growth(ctx context.Context, userID string, period int, now time.Time) (*Growth, error) {
	period = NormalizePeriod(period)
	today, _ := s.today(userID, now)

	cur, _, err := s.totals(ctx, userID, today.AddDate(0, 0, -(period-1)), today)
	if err != nil {
		return nil, err
	}
	prevEnd := today.AddDate(0, 0, -period)
	prev, _, err := s.totals(ctx, userID, prevEnd.AddDate(0, 0, -(period-1)), prevEnd)
	if err != nil {
		return nil, err
	}

	growth := GrowthPercent(cur.Chapters, prev.Chapters)
	return &Growth{
		Period:           period,
		CurrentReadings:  cur.Chapters,
		PreviousReadings: prev.Chapters,
		ReadingGrowth:    growth,
		CurrentRate:      cur.Progress,
		PreviousRate:     prev.Progress,
		Insight:          Insight(cur.Chapters, prev.Chapters, growth),
	}, nil
}

// Journey lists each active day of the period with the books read
func (s *Service) Journey(ctx context.Context, userID string, period int, now time.Time) ([]JourneyDay, error) {
	period = NormalizePeriod(period)
	today, _ := s.today(userID, now)

	rows, err := s.progress.CompletedBetween(ctx, userID, bible.FormatDate(today.AddDate(0, 0, -(period-1))), bible.FormatDate(today))
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	days := map[string]*JourneyDay{}
	var order []string
	for _, r := range rows {
		d, ok := days[r.PlanDate]
		if !ok {
			d = &JourneyDay{Date: r.PlanDate, Books: []string{}}
			days[r.PlanDate] = d
			order = append(order, r.PlanDate)
		}
		d.Readings++
		if r.Book != "" && !slices.Contains(d.Books, r.Book) {
			d.Books = append(d.Books, r.Book)
		}
	}
	sort.Strings(order)

	out := make([]JourneyDay, 0, len(order))
	for _, date := range order {
		d := days[date]
		d.CompletionRate = round1(float64(d.Readings) / bible.ReadingsPerDay * 100)
		out = append(out, *d)
	}
	return out, nil
}
