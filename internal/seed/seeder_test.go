package seed

import (
	"os"
	"testing"

	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func count(t *testing.T, s *Seeder, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func TestSeedTestIsRepeatable(t *testing.T) {
	s := NewSeeder(testutil.NewTestDB(t))

	require.NoError(t, s.SeedTest())
	assert.EqualValues(t, 5, count(t, s, &models.User{}))
	assert.EqualValues(t, 5, count(t, s, &models.Discussion{}))
	assert.EqualValues(t, 10, count(t, s, &models.Comment{}))

	var comments int64
	require.NoError(t, s.db.Model(&models.Discussion{}).Select("COALESCE(SUM(comment_count), 0)").Scan(&comments).Error)
	assert.EqualValues(t, 10, comments)

	// a second run reuses the accounts and skips duplicate progress rows
	require.NoError(t, s.SeedTest())
	assert.EqualValues(t, 5, count(t, s, &models.User{}))
}

func TestCleanKeepsRealAccounts(t *testing.T) {
	s := NewSeeder(testutil.NewTestDB(t))
	real := models.User{Email: "reader@macchain.kr", Username: "reader", DisplayName: "Reader"}
	require.NoError(t, s.db.Create(&real).Error)

	users, err := s.seedUsers(3)
	require.NoError(t, err)
	require.NoError(t, s.seedProgress(users, 5))
	discussions, err := s.seedDiscussions(users, 4)
	require.NoError(t, err)
	require.NoError(t, s.seedComments(users, discussions, 6))
	require.NoError(t, s.seedReactions(users, discussions, 10))

	require.NoError(t, s.Clean())
	assert.EqualValues(t, 1, count(t, s, &models.User{}))
	assert.Zero(t, count(t, s, &models.Discussion{}))
	assert.Zero(t, count(t, s, &models.Comment{}))
	assert.Zero(t, count(t, s, &models.DiscussionLike{}))
	assert.Zero(t, count(t, s, &models.ReadingProgress{}))
	assert.Zero(t, count(t, s, &models.UserSettings{}))
	assert.EqualValues(t, 5, count(t, s, &models.Category{}))
}
