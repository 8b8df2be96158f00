package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/macchain/backend/internal/analysis"
	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func expectedVerses(t *testing.T, s *DailyAnalysisScheduler, day int) int {
	t.Helper()
	readings, err := bible.ReadingsForDay(day)
	require.NoError(t, err)
	total := 0
	for _, r := range readings {
		first, last := s.verseRange(r)
		total += last - first + 1
	}
	require.Positive(t, total)
	return total
}

func TestDailyAnalysisSkipsExistingVerses(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := analysis.NewService(db, nil, nil)
	s := NewDailyAnalysisScheduler(svc, config.SchedulerConfig{AnalysisHour: 2}, nil)
	ctx := context.Background()

	want := expectedVerses(t, s, 1)

	first, err := s.RunForDay(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, first.Created)
	assert.Zero(t, first.Skipped)

	second, err := s.RunForDay(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, want, second.Skipped)

	var stored int64
	require.NoError(t, db.Model(&models.AIAnalysis{}).Where("source = ?", models.AnalysisSourceScheduler).Count(&stored).Error)
	assert.EqualValues(t, want, stored)
}

func TestDailyAnalysisRunNowUsesToday(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewDailyAnalysisScheduler(analysis.NewService(db, nil, nil), config.SchedulerConfig{VersesPerChapter: 1}, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41, result.Day)
	assert.Equal(t, expectedVerses(t, s, 41), result.Created)
}

type failingEnsurer struct {
	mu    sync.Mutex
	calls int
}

func (f *failingEnsurer) EnsureVerse(context.Context, string, int, int, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return false, errors.New("generator down")
}

func TestDailyAnalysisReportsErrors(t *testing.T) {
	f := &failingEnsurer{}
	s := NewDailyAnalysisScheduler(f, config.SchedulerConfig{}, nil)

	_, err := s.RunForDay(context.Background(), 1)
	assert.ErrorContains(t, err, "generator down")

	_, err = s.RunForDay(context.Background(), 0)
	assert.ErrorIs(t, err, bible.ErrInvalidDay)
}

func TestDailyAnalysisStartStop(t *testing.T) {
	s := NewDailyAnalysisScheduler(&failingEnsurer{}, config.SchedulerConfig{AnalysisHour: 3}, nil)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingNotifier) Notify(_ context.Context, userID, notificationType string, _ map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notificationType == models.NotificationReadingReminder {
		r.users = append(r.users, userID)
	}
	return nil
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Email: name + "@example.com", Username: name, DisplayName: name}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestReminderScheduler(t *testing.T) {
	db := testutil.NewTestDB(t)

	alice := createUser(t, db, "alice") // defaults: 07:00 Asia/Seoul
	carol := createUser(t, db, "carol")
	dave := createUser(t, db, "dave")
	bob := createUser(t, db, "bob")

	now := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC) // 07:00 on 03-03 in Seoul
	completedAt := now

	require.NoError(t, db.Create(&models.ReadingProgress{
		UserID: carol.ID, PlanDate: "2026-03-03", ReadingID: 1, IsCompleted: true, CompletedAt: &completedAt,
	}).Error)

	daveSettings := models.DefaultSettings(dave.ID)
	daveSettings.ReminderEnabled = false
	require.NoError(t, db.Create(&daveSettings).Error)

	bobSettings := models.DefaultSettings(bob.ID)
	bobSettings.Timezone = "America/New_York"
	bobSettings.ReminderTime = "21:30"
	require.NoError(t, db.Create(&bobSettings).Error)

	notifier := &recordingNotifier{}
	s := NewReminderScheduler(db, notifier)
	ctx := context.Background()

	n, err := s.RunAt(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{alice.ID}, notifier.users)

	n, err = s.RunAt(ctx, now.Add(20*time.Second))
	require.NoError(t, err)
	assert.Zero(t, n, "one reminder per day")

	// 21:30 on 03-02 in New York
	n, err = s.RunAt(ctx, time.Date(2026, 3, 3, 2, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{alice.ID, bob.ID}, notifier.users)

	// alice again the next morning
	n, err = s.RunAt(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
