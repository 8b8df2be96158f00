package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/events"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	subjects []string
}

func (f *fakeSender) SendPasswordReset(context.Context, string, string) error { return nil }

func (f *fakeSender) SendNotification(_ context.Context, _, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("ses throttled")
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

type fakePusher struct {
	mu     sync.Mutex
	online bool
	pushed []models.Notification
	counts []int64
}

func (f *fakePusher) PushNotification(n models.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return false
	}
	f.pushed = append(f.pushed, n)
	return true
}

func (f *fakePusher) PushUnreadCount(_ string, unread int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, unread)
}

type recordingQueue struct {
	ids []string
}

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

func newUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Email: name + "@example.com", Username: name, DisplayName: name}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestRenderTemplates(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		data     map[string]interface{}
		title    string
		message  string
		priority string
	}{
		{"reminder", models.NotificationReadingReminder, nil, "성경 읽기 시간입니다!", "오늘의 읽기 계획을 확인해보세요.", models.PriorityHigh},
		{"streak", models.NotificationStreakMilestone, map[string]interface{}{"days": 7}, "연속 읽기 달성!", "축하합니다! 7일 연속으로 성경을 읽고 있습니다.", models.PriorityHigh},
		{"streak from json", models.NotificationStreakMilestone, map[string]interface{}{"days": float64(30)}, "연속 읽기 달성!", "축하합니다! 30일 연속으로 성경을 읽고 있습니다.", models.PriorityHigh},
		{"weekly", models.NotificationWeeklySummary, map[string]interface{}{"completedReadings": 12}, "주간 읽기 요약", "이번 주에 12개의 읽기 계획을 완료했습니다.", models.PriorityNormal},
		{"analysis", models.NotificationAIAnalysisReady, nil, "AI 분석 완료", "요청하신 성경 구절 분석이 완료되었습니다.", models.PriorityNormal},
		{"community custom", models.NotificationCommunityInteraction, map[string]interface{}{"message": "Bob님이 댓글을 남겼습니다."}, "커뮤니티 활동", "Bob님이 댓글을 남겼습니다.", models.PriorityLow},
		{"community default", models.NotificationCommunityInteraction, nil, "커뮤니티 활동", "새로운 커뮤니티 활동이 있습니다.", models.PriorityLow},
		{"unknown", "system_update", nil, "새로운 알림", "새로운 알림이 있습니다.", models.PriorityNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Render(tt.typ, tt.data)
			assert.Equal(t, tt.title, c.Title)
			assert.Equal(t, tt.message, c.Message)
			assert.Equal(t, tt.priority, c.Priority)
		})
	}
}

func TestNotifyStoresPublishesAndQueues(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	rec := &events.Recorder{}
	q := &recordingQueue{}

	svc := NewService(db, rec)
	svc.SetQueue(q)

	ctx := events.WithOrigin(context.Background(), "client-1")
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationStreakMilestone, map[string]interface{}{"days": 3}))

	var stored models.Notification
	require.NoError(t, db.First(&stored, "user_id = ?", alice.ID).Error)
	assert.Equal(t, models.NotificationPending, stored.Status)
	assert.Equal(t, models.PriorityHigh, stored.Priority)
	assert.JSONEq(t, `{"days":3}`, stored.Data)
	assert.Equal(t, []string{stored.ID}, q.ids)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TableNotifications, evs[0].Table)
	assert.Equal(t, alice.ID, evs[0].UserID)
	assert.Equal(t, "client-1", evs[0].Origin)
}

func TestNotifyRespectsPreferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	prefs := models.DefaultSettings(alice.ID)
	prefs.CommunityEnabled = false
	require.NoError(t, db.Create(&prefs).Error)

	svc := NewService(db, nil)
	ctx := context.Background()
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationCommunityInteraction, nil))
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationReadingReminder, nil))

	var types []string
	require.NoError(t, db.Model(&models.Notification{}).Pluck("type", &types).Error)
	assert.Equal(t, []string{models.NotificationReadingReminder}, types)
}

func TestListAndReadState(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	pusher := &fakePusher{}

	svc := NewService(db, nil)
	svc.SetPusher(pusher)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationWeeklySummary, map[string]interface{}{"completedReadings": i}))
	}
	require.NoError(t, svc.Notify(ctx, bob.ID, models.NotificationReadingReminder, nil))

	list, total, err := svc.List(ctx, alice.ID, false, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 2)

	_, err = svc.MarkRead(ctx, bob.ID, list[0].ID)
	assert.ErrorIs(t, err, ErrNotFound, "bob cannot read alice's notification")

	read, err := svc.MarkRead(ctx, alice.ID, list[0].ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	firstRead := *read.ReadAt

	again, err := svc.MarkRead(ctx, alice.ID, list[0].ID)
	require.NoError(t, err)
	assert.True(t, firstRead.Equal(*again.ReadAt))

	unread, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	unreadList, total, err := svc.List(ctx, alice.ID, true, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, unreadList, 2)

	n, err := svc.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err = svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	bobUnread, err := svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bobUnread)

	assert.Equal(t, []int64{2, 0}, pusher.counts)
}

func TestDeliverEmailsHighPriorityAndPushes(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	sender := &fakeSender{}
	pusher := &fakePusher{online: true}
	svc := NewService(db, nil)
	d := NewDeliverer(db, pusher, sender)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationReadingReminder, nil))
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationAIAnalysisReady, nil))

	var list []models.Notification
	require.NoError(t, db.Order("created_at").Find(&list).Error)
	require.Len(t, list, 2)

	for _, n := range list {
		require.NoError(t, d.Deliver(ctx, n.ID, 1))
	}

	assert.Equal(t, []string{"성경 읽기 시간입니다!"}, sender.sent(), "only high priority is emailed")
	assert.Len(t, pusher.pushed, 2)

	var sent int64
	require.NoError(t, db.Model(&models.Notification{}).Where("status = ? AND sent_at IS NOT NULL", models.NotificationSent).Count(&sent).Error)
	assert.EqualValues(t, 2, sent)

	// redelivery of a sent row is a no-op
	require.NoError(t, d.Deliver(ctx, list[0].ID, 2))
	assert.Len(t, sender.sent(), 1)
}

func TestDeliverSkipsEmailWhenDisabled(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	prefs := models.DefaultSettings(alice.ID)
	prefs.EmailEnabled = false
	require.NoError(t, db.Create(&prefs).Error)

	sender := &fakeSender{}
	svc := NewService(db, nil)
	ctx := context.Background()
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationReadingReminder, nil))

	var n models.Notification
	require.NoError(t, db.First(&n).Error)
	require.NoError(t, NewDeliverer(db, nil, sender).Deliver(ctx, n.ID, 1))
	assert.Empty(t, sender.sent())
}

func TestQueueRetriesThenFails(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	sender := &fakeSender{failures: 4}

	svc := NewService(db, nil)
	q := queue.NewNotificationQueue(queue.NewMemoryBackend(16), NewDeliverer(db, nil, sender), queue.Options{
		Workers:     1,
		MaxAttempts: 3,
		Backoff:     5 * time.Millisecond,
	})
	svc.SetQueue(q)
	q.Start()
	defer q.Stop()

	ctx := context.Background()

	// three failed attempts exhaust the first notification
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationReadingReminder, nil))
	var first models.Notification
	require.NoError(t, db.First(&first, "user_id = ?", alice.ID).Error)
	require.NoError(t, q.WaitFor(first.ID, 2*time.Second))
	require.NoError(t, db.First(&first, "id = ?", first.ID).Error)
	assert.Equal(t, models.NotificationFailed, first.Status)
	assert.Equal(t, 3, first.Attempts)

	// one more failure, then success on the second attempt
	require.NoError(t, svc.Notify(ctx, bob.ID, models.NotificationReadingReminder, nil))
	var second models.Notification
	require.NoError(t, db.First(&second, "user_id = ?", bob.ID).Error)
	require.NoError(t, q.WaitFor(second.ID, 2*time.Second))
	require.NoError(t, db.First(&second, "id = ?", second.ID).Error)
	assert.Equal(t, models.NotificationSent, second.Status)
	assert.Equal(t, 2, second.Attempts)
}

func TestRequeuePending(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := newUser(t, db, "alice")
	svc := NewService(db, nil)
	ctx := context.Background()

	// stored before any queue exists
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationReadingReminder, nil))
	require.NoError(t, svc.Notify(ctx, alice.ID, models.NotificationWeeklySummary, nil))
	require.NoError(t, db.Create(&models.Notification{UserID: alice.ID, Type: "x", Title: "t", Status: models.NotificationSent}).Error)

	n, err := svc.RequeuePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no queue attached")

	q := &recordingQueue{}
	svc.SetQueue(q)
	n, err = svc.RequeuePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, q.ids, 2)
}
