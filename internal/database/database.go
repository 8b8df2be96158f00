package database

import (
	"context"
	"fmt"
	"time"

	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB holds the database connection
var DB *gorm.DB

// Options tune Initialize beyond the connection settings
type Options struct {
	Environment string
	Tracing     bool
}

// Initialize creates and configures the database connection
func Initialize(cfg config.DatabaseConfig, opts Options) error {
	var dialector gorm.Dialector
	dbSystem := "postgresql"
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
		dbSystem = "sqlite"
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(opts.Environment == "development"),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Tracing {
		if err := db.Use(telemetry.GORMTracingPlugin(dbSystem)); err != nil {
			return fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))
	return nil
}

// Migrate runs auto-migration for all models on the global connection
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB migrates the schema, creates indexes and seeds default categories
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	if err := seedCategories(db); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// Rollback drops every table owned by the service
func Rollback() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	all := models.All()
	// reverse order so dependents go first
	for i := len(all) - 1; i >= 0; i-- {
		if err := DB.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}

// createIndexes adds the composite indexes AutoMigrate cannot express.
// Failures are logged; the portable subset works on both drivers.
func createIndexes(db *gorm.DB) {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_progress_user_completed ON reading_progress (user_id, is_completed, plan_date)",
		"CREATE INDEX IF NOT EXISTS idx_progress_completed_at ON reading_progress (user_id, completed_at)",
		"CREATE INDEX IF NOT EXISTS idx_discussions_category_created ON discussions (category_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_discussions_popular ON discussions (like_count DESC, comment_count DESC, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_discussion_created ON comments (discussion_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created ON bookmarks (user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_ai_analysis_user_created ON ai_analysis (user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications (user_id, read_at, created_at DESC)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Log.Warn("Failed to create index", zap.String("sql", stmt), zap.Error(err))
		}
	}
}

func seedCategories(db *gorm.DB) error {
	for _, cat := range models.DefaultCategories() {
		var count int64
		if err := db.Model(&models.Category{}).Where("name = ?", cat.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		c := cat
		if err := db.Create(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
