package database_test

import (
	"testing"

	"github.com/macchain/backend/internal/database"
	"github.com/macchain/backend/internal/database/testutil"
	"github.com/macchain/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSeedsCategoriesOnce(t *testing.T) {
	db := testutil.NewTestDB(t)

	var count int64
	require.NoError(t, db.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultCategories())), count)

	// running migrations again must not duplicate categories
	require.NoError(t, database.MigrateDB(db))
	require.NoError(t, db.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultCategories())), count)
}

func TestProgressUniqueIndex(t *testing.T) {
	db := testutil.NewTestDB(t)

	row := models.ReadingProgress{UserID: "u1", PlanDate: "2025-01-01", ReadingID: 1, IsCompleted: true}
	require.NoError(t, db.Create(&row).Error)

	dup := models.ReadingProgress{UserID: "u1", PlanDate: "2025-01-01", ReadingID: 1}
	assert.Error(t, db.Create(&dup).Error)
}

func TestSoftDeleteHidesDiscussion(t *testing.T) {
	db := testutil.NewTestDB(t)

	d := models.Discussion{UserID: "u1", Title: "제목", Content: "충분히 긴 본문입니다"}
	require.NoError(t, db.Create(&d).Error)
	require.NoError(t, db.Delete(&d).Error)

	var count int64
	require.NoError(t, db.Model(&models.Discussion{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.Unscoped().Model(&models.Discussion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHealthWithoutConnection(t *testing.T) {
	prev := database.DB
	database.DB = nil
	defer func() { database.DB = prev }()

	assert.Error(t, database.Health(t.Context()))
}
