// Package testutil opens migrated in-memory databases for tests.
package testutil

import (
	"testing"

	"github.com/macchain/backend/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB returns a fresh in-memory SQLite database with the full schema
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Discard,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.MigrateDB(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
