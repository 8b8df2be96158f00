package stats

import (
	"context"
	"testing"
	"time"

	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const statsUser = "reader-1"

// now is fixed at 2026-03-10 12:00 UTC; a UTC settings row keeps the
// reader's local day equal to the UTC day
var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newStatsService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewTestDB(t)
	settings := models.DefaultSettings(statsUser)
	settings.Timezone = "UTC"
	require.NoError(t, db.Create(&settings).Error)
	return NewService(db), db
}

func complete(t *testing.T, db *gorm.DB, date string, readingID int, book string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.ReadingProgress{
		UserID:      statsUser,
		PlanDate:    date,
		ReadingID:   readingID,
		Book:        book,
		Chapter:     1,
		IsCompleted: true,
		CompletedAt: &at,
	}).Error)
}

func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, 7, NormalizePeriod(7))
	assert.Equal(t, 365, NormalizePeriod(365))
	assert.Equal(t, 30, NormalizePeriod(14))
	assert.Equal(t, 30, NormalizePeriod(0))
}

func TestGrowthPercent(t *testing.T) {
	assert.Equal(t, 0.0, GrowthPercent(0, 0))
	assert.Equal(t, 100.0, GrowthPercent(5, 0))
	assert.Equal(t, 50.0, GrowthPercent(6, 4))
	assert.Equal(t, -50.0, GrowthPercent(2, 4))
	assert.Equal(t, 33.3, GrowthPercent(4, 3))
}

func TestInsightBands(t *testing.T) {
	assert.Contains(t, Insight(0, 0, 0), "아직")
	assert.Contains(t, Insight(10, 2, 400), "놀라운")
	assert.Contains(t, Insight(11, 10, 10), "꾸준히 성장")
	assert.Equal(t, DefaultInsight, Insight(10, 10, 0))
	assert.Contains(t, Insight(5, 10, -50), "줄었습니다")
}

func TestBase(t *testing.T) {
	svc, db := newStatsService(t)
	at := now.Add(-time.Hour)

	for id := 1; id <= 4; id++ {
		complete(t, db, "2026-03-10", id, "Genesis", at)
	}
	complete(t, db, "2026-03-09", 1, "Genesis", at.AddDate(0, 0, -1))
	complete(t, db, "2026-03-09", 2, "Matthew", at.AddDate(0, 0, -1))
	complete(t, db, "2026-03-01", 1, "Ezra", at.AddDate(0, 0, -9))
	complete(t, db, "2026-01-15", 1, "Acts", at.AddDate(0, 0, -54))

	base, err := svc.Base(context.Background(), statsUser, now)
	require.NoError(t, err)

	assert.Equal(t, 3, base.TotalDaysRead)
	assert.Equal(t, 7, base.TotalChaptersRead)
	assert.Equal(t, 1, base.PerfectDays)
	// (100 + 50 + 25) / 3
	assert.Equal(t, 58.3, base.AverageProgress)
	assert.Equal(t, 2, base.ConsecutiveDays)
	assert.Equal(t, Streak{Days: 2, StartDate: "2026-03-09", EndDate: "2026-03-10"}, base.LongestStreak)

	assert.Equal(t, Totals{Days: 3, Chapters: 7, Progress: 17.5}, base.CurrentMonth)
	assert.Equal(t, 4, base.CurrentYear.Days)
	assert.Equal(t, 8, base.CurrentYear.Chapters)

	require.Len(t, base.DailyProgress, 7)
	assert.Equal(t, "2026-03-04", base.DailyProgress[0].Date)
	last := base.DailyProgress[6]
	assert.Equal(t, DayProgress{Date: "2026-03-10", Completed: 4, Total: 4, Percent: 100}, last)
}

func TestOverview(t *testing.T) {
	svc, db := newStatsService(t)
	at := now.Add(-2 * time.Hour)

	complete(t, db, "2026-03-10", 1, "Genesis", at)
	complete(t, db, "2026-03-10", 2, "Matthew", at.Add(time.Minute))
	complete(t, db, "2026-03-08", 1, "Genesis", at.AddDate(0, 0, -2))

	ov, err := svc.Overview(context.Background(), statsUser, 7, now)
	require.NoError(t, err)
	assert.Equal(t, 7, ov.Period)
	assert.Equal(t, 3, ov.TotalReadings)
	assert.Equal(t, 2, ov.ActiveDays)
	// 3 / 28
	assert.Equal(t, 10.7, ov.CompletionRate)
	assert.Equal(t, 1, ov.CurrentStreak)
	require.NotNil(t, ov.LastReading)
	assert.Equal(t, "Matthew", ov.LastReading.Book)
	require.NotEmpty(t, ov.TopBooks)
	assert.Equal(t, "Genesis", ov.TopBooks[0].Book)
	assert.Equal(t, 2, ov.TopBooks[0].Count)

	empty, err := NewService(testutil.NewTestDB(t)).Overview(context.Background(), "nobody", 99, now)
	require.NoError(t, err)
	assert.Equal(t, 30, empty.Period)
	assert.Nil(t, empty.LastReading)
	assert.Empty(t, empty.TopBooks)
}

func TestPatterns(t *testing.T) {
	svc, db := newStatsService(t)

	// Tuesday 2026-03-10 06:00 and 06:30, Monday 21:00
	complete(t, db, "2026-03-10", 1, "Genesis", time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC))
	complete(t, db, "2026-03-10", 2, "Genesis", time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC))
	complete(t, db, "2026-03-09", 1, "Genesis", time.Date(2026, 3, 9, 21, 0, 0, 0, time.UTC))
	// outside the 7 day window
	complete(t, db, "2026-02-01", 1, "Genesis", time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC))

	p, err := svc.Patterns(context.Background(), statsUser, 7, now)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Hourly[6])
	assert.Equal(t, 1, p.Hourly[21])
	assert.Equal(t, 2, p.Weekly[int(time.Tuesday)])
	assert.Equal(t, 1, p.Weekly[int(time.Monday)])
	assert.Equal(t, 3, p.Monthly[2])
	assert.Equal(t, 0, p.Monthly[1])
}

func TestGrowth(t *testing.T) {
	svc, db := newStatsService(t)
	at := now.Add(-time.Hour)

	// current 7-day window: 03-04..03-10, previous: 02-25..03-03
	complete(t, db, "2026-03-10", 1, "Genesis", at)
	complete(t, db, "2026-03-09", 1, "Genesis", at)
	complete(t, db, "2026-03-05", 1, "Genesis", at)
	complete(t, db, "2026-03-01", 1, "Genesis", at)
	complete(t, db, "2026-02-26", 1, "Genesis", at)

	g, err := svc.Growth(context.Background(), statsUser, 7, now)
	require.NoError(t, err)
	assert.Equal(t, 3, g.CurrentReadings)
	assert.Equal(t, 2, g.PreviousReadings)
	assert.Equal(t, 50.0, g.ReadingGrowth)
	assert.NotEmpty(t, g.Insight)
}

func TestJourney(t *testing.T) {
	svc, db := newStatsService(t)
	at := now.Add(-time.Hour)

	complete(t, db, "2026-03-10", 1, "Genesis", at)
	complete(t, db, "2026-03-10", 2, "Matthew", at)
	complete(t, db, "2026-03-08", 1, "Genesis", at)

	days, err := svc.Journey(context.Background(), statsUser, 7, now)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-08", days[0].Date)
	assert.Equal(t, JourneyDay{Date: "2026-03-10", Readings: 2, CompletionRate: 50, Books: []string{"Genesis", "Matthew"}}, days[1])
}
