package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance
var Log *zap.Logger

// SugaredLog is a sugared logger for printf-style logging in commands
var SugaredLog *zap.SugaredLogger

func init() {
	// Packages log before Initialize runs in tests and tools.
	Log = zap.NewNop()
	SugaredLog = Log.Sugar()
}

// Initialize sets up the structured logger.
// logLevel: "debug", "info", "warn", "error" (default: "info")
// logFile: path to a rotated JSON log file; empty means console only
func Initialize(logLevel string, logFile string) error {
	if logLevel == "" {
		logLevel = "info"
	}
	level := parseLogLevel(logLevel)

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
	}

	if logFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		})

		jsonEncoderConfig := zap.NewProductionEncoderConfig()
		jsonEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig), fileWriter, level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	SugaredLog = Log.Sugar()

	Log.Info("Logger initialized",
		zap.String("level", logLevel),
		zap.String("file", logFile),
	)

	return nil
}

// Close flushes the logger before shutdown
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InfoWithFields logs an info message with structured fields
func InfoWithFields(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

// WarnWithFields logs a warning message, optionally with an error
func WarnWithFields(msg string, err error) {
	if err != nil {
		Log.Warn(msg, zap.Error(err))
	} else {
		Log.Warn(msg)
	}
}

// ErrorWithFields logs an error message with an error
func ErrorWithFields(msg string, err error) {
	if err != nil {
		Log.Error(msg, zap.Error(err))
	} else {
		Log.Error(msg)
	}
}

// Error logs an error with structured fields
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

// DebugWithFields logs a debug message with structured fields
func DebugWithFields(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// FatalWithFields logs a fatal error and exits
func FatalWithFields(msg string, err error) {
	if err != nil {
		Log.Fatal(msg, zap.Error(err))
	} else {
		Log.Fatal(msg)
	}
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithDiscussionID(discussionID string) zap.Field {
	return zap.String("discussion_id", discussionID)
}

func WithCommentID(commentID string) zap.Field {
	return zap.String("comment_id", commentID)
}

func WithPlanDate(date string) zap.Field {
	return zap.String("plan_date", date)
}

func WithReadingID(readingID int) zap.Field {
	return zap.Int("reading_id", readingID)
}

func WithNotificationID(id string) zap.Field {
	return zap.String("notification_id", id)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

func WithDuration(duration interface{}) zap.Field {
	return zap.Any("duration", duration)
}
