package readingplan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	userID string
	kind   string
	data   map[string]interface{}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID, kind string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{userID: userID, kind: kind, data: data})
	return nil
}

func newService(t *testing.T) (*Service, *events.Recorder, *fakeNotifier) {
	db := testutil.NewTestDB(t)
	rec := &events.Recorder{}
	n := &fakeNotifier{}
	return NewService(db, nil, rec, n), rec, n
}

func TestGetDay(t *testing.T) {
	svc, _, _ := newService(t)

	day, err := svc.GetDay(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, day.DayNumber)
	assert.Equal(t, "1월 1일", day.DateLabel)
	require.Len(t, day.Readings, 4)
	assert.Equal(t, "Genesis", day.Readings[0].Book)

	_, err = svc.GetDay(context.Background(), 0)
	assert.ErrorIs(t, err, bible.ErrInvalidDay)
	_, err = svc.GetDay(context.Background(), 366)
	assert.ErrorIs(t, err, bible.ErrInvalidDay)
}

func TestGetDayCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisClient(mr.Host(), mr.Port(), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rc.Close()
		cache.SetRedisClient(nil)
	})

	svc := NewService(testutil.NewTestDB(t), rc, nil, nil)
	first, err := svc.GetDay(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists("plan:day:42"))

	second, err := svc.GetDay(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSetCompletionAndGetForDate(t *testing.T) {
	svc, rec, _ := newService(t)
	ctx := events.WithOrigin(context.Background(), "client-1")

	row, err := svc.SetCompletion(ctx, "user-1", "2026-01-01", 2, true)
	require.NoError(t, err)
	assert.True(t, row.IsCompleted)
	require.NotNil(t, row.CompletedAt)
	assert.Equal(t, "Matthew", row.Book)

	day, err := svc.GetForDate(ctx, "user-1", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, day.CompletedCount)
	assert.Equal(t, 4, day.TotalCount)
	assert.True(t, day.Readings[1].IsCompleted)
	assert.False(t, day.Readings[0].IsCompleted)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TableReadingProgress, evs[0].Table)
	assert.Equal(t, events.Insert, evs[0].Event)
	assert.Equal(t, "client-1", evs[0].Origin)
	assert.Equal(t, "user-1", evs[0].UserID)
}

func TestSetCompletionIdempotent(t *testing.T) {
	svc, rec, _ := newService(t)
	ctx := context.Background()

	first, err := svc.SetCompletion(ctx, "user-1", "2026-02-01", 1, true)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := svc.SetCompletion(ctx, "user-1", "2026-02-01", 1, true)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt))
	assert.Equal(t, []string{"reading_progress:INSERT", "reading_progress:UPDATE"}, rec.Tables())

	undone, err := svc.SetCompletion(ctx, "user-1", "2026-02-01", 1, false)
	require.NoError(t, err)
	assert.False(t, undone.IsCompleted)
	assert.Nil(t, undone.CompletedAt)
}

func TestSetCompletionValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SetCompletion(ctx, "user-1", "2026-13-01", 1, true)
	assert.ErrorIs(t, err, bible.ErrInvalidDate)
	_, err = svc.SetCompletion(ctx, "user-1", "26-01-01", 1, true)
	assert.ErrorIs(t, err, bible.ErrInvalidDate)
	_, err = svc.SetCompletion(ctx, "user-1", "2026-01-01", 0, true)
	assert.ErrorIs(t, err, ErrInvalidReading)
	_, err = svc.SetCompletion(ctx, "user-1", "2026-01-01", 5, true)
	assert.ErrorIs(t, err, ErrInvalidReading)
}

func TestStreakMilestoneNotification(t *testing.T) {
	db := testutil.NewTestDB(t)
	n := &fakeNotifier{}
	svc := NewService(db, nil, nil, n)
	ctx := context.Background()

	today := svc.LocalDate("user-1", time.Now())
	todayT, err := bible.ParseDate(today)
	require.NoError(t, err)

	for _, back := range []int{2, 1} {
		d := bible.FormatDate(todayT.AddDate(0, 0, -back))
		require.NoError(t, db.Create(&models.ReadingProgress{
			UserID: "user-1", PlanDate: d, ReadingID: 1, IsCompleted: true,
		}).Error)
	}

	_, err = svc.SetCompletion(ctx, "user-1", today, 1, true)
	require.NoError(t, err)
	// a second reading the same day does not extend the streak again
	_, err = svc.SetCompletion(ctx, "user-1", today, 2, true)
	require.NoError(t, err)

	require.Len(t, n.sent, 1)
	assert.Equal(t, models.NotificationStreakMilestone, n.sent[0].kind)
	assert.Equal(t, 3, n.sent[0].data["days"])
}

func TestHistoryAndUserProgress(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, id := range []int{1, 2, 3} {
		_, err := svc.SetCompletion(ctx, "user-1", "2026-04-01", id, true)
		require.NoError(t, err)
	}
	_, err := svc.SetCompletion(ctx, "user-1", "2026-04-03", 4, true)
	require.NoError(t, err)

	history, err := svc.History(ctx, "user-1", "2026-04-01", "2026-04-30")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-04-01", history[0].PlanDate)
	assert.Equal(t, 3, history[0].Completed)

	_, err = svc.History(ctx, "user-1", "2026-04-30", "2026-04-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	progress, err := svc.UserProgress(ctx, "user-1", time.Date(2026, 4, 3, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(4), progress.TotalCompleted)
	assert.Equal(t, "2026-04-03", progress.Date)
	assert.Equal(t, 93, progress.CurrentDay)
	assert.Equal(t, 1, progress.CompletedToday)
	assert.Equal(t, 1, progress.CurrentStreak)
}
