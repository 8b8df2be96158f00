package settings

import (
	"context"
	"testing"
	"time"

	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestGetSettingsDefaults(t *testing.T) {
	svc := NewService(testutil.NewTestDB(t))

	got, err := svc.GetSettings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, got.NotificationsEnabled)
	assert.Equal(t, "07:00", got.ReminderTime)
	assert.Equal(t, models.ThemeLight, got.Theme)
	assert.Equal(t, "ko", got.Language)
	assert.Equal(t, models.FontMedium, got.FontSize)
	assert.Empty(t, got.ID)
}

func TestUpdateSettingsPartial(t *testing.T) {
	svc := NewService(testutil.NewTestDB(t))
	ctx := context.Background()

	got, err := svc.UpdateSettings(ctx, "user-1", UpdateSettingsRequest{Theme: ptr("dark")})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, "07:00", got.ReminderTime)
	assert.True(t, got.NotificationsEnabled)

	got, err = svc.UpdateSettings(ctx, "user-1", UpdateSettingsRequest{
		NotificationsEnabled: ptr(false),
		ReminderTime:         ptr("21:30"),
	})
	require.NoError(t, err)
	assert.False(t, got.NotificationsEnabled)
	assert.Equal(t, "21:30", got.ReminderTime)
	assert.Equal(t, "dark", got.Theme)
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc := NewService(testutil.NewTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		req   UpdateSettingsRequest
		field string
	}{
		{"theme", UpdateSettingsRequest{Theme: ptr("neon")}, "theme"},
		{"font", UpdateSettingsRequest{FontSize: ptr("huge")}, "font_size"},
		{"reminder", UpdateSettingsRequest{ReminderTime: ptr("25:00")}, "reminder_time"},
		{"language", UpdateSettingsRequest{Language: ptr("xx")}, "language"},
		{"timezone", UpdateSettingsRequest{Timezone: ptr("Mars/Olympus")}, "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateSettings(ctx, "user-1", tt.req)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestConsent(t *testing.T) {
	svc := NewService(testutil.NewTestDB(t))
	ctx := context.Background()
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	got, err := svc.GetConsent(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, got.TermsAccepted)
	assert.Nil(t, got.AcceptedAt)

	got, err = svc.UpdateConsent(ctx, "user-1", UpdateConsentRequest{MarketingAccepted: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.MarketingAccepted)
	assert.Nil(t, got.AcceptedAt)

	got, err = svc.UpdateConsent(ctx, "user-1", UpdateConsentRequest{TermsAccepted: ptr(true), PrivacyAccepted: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.TermsAccepted)
	require.NotNil(t, got.AcceptedAt)
	assert.True(t, fixed.Equal(*got.AcceptedAt))

	svc.now = func() time.Time { return fixed.Add(time.Hour) }
	got, err = svc.UpdateConsent(ctx, "user-1", UpdateConsentRequest{MarketingAccepted: ptr(false)})
	require.NoError(t, err)
	assert.True(t, fixed.Equal(*got.AcceptedAt))
	assert.False(t, got.MarketingAccepted)
}
