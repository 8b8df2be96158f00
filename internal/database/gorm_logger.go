package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	applogger "github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SlowQueryThreshold marks queries logged at warn
const SlowQueryThreshold = 200 * time.Millisecond

// GormLogger routes GORM's logging through the zap logger
type GormLogger struct {
	level gormlogger.LogLevel
}

// NewGormLogger logs every statement when verbose, otherwise only slow
// queries and errors
func NewGormLogger(verbose bool) *GormLogger {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return &GormLogger{level: level}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{level: level}
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		applogger.Log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		applogger.Log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		applogger.Log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	recordQuery(fc, elapsed, err)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		applogger.Log.Error("Query failed",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed), zap.Error(err))
	case elapsed > SlowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		applogger.Log.Warn("Slow query",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		applogger.Log.Debug("Query",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	}
}

func recordQuery(fc func() (string, int64), elapsed time.Duration, err error) {
	sql, _ := fc()
	op := "other"
	if fields := strings.Fields(sql); len(fields) > 0 {
		switch kw := strings.ToLower(fields[0]); kw {
		case "select", "insert", "update", "delete":
			op = kw
		}
	}
	status := "success"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = "error"
	}
	m := metrics.Get()
	m.DatabaseQueriesTotal.WithLabelValues(op, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
