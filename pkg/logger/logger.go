// Package logger is the CLI's file logger
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/macchain/backend/pkg/config"
)

var (
	logger *log.Logger
	file   *os.File
)

// Init opens the configured log file. Without a usable file the logger
// writes to stderr. verbose forces debug level.
func Init(verbose bool) {
	level, err := log.ParseLevel(config.GetString("log.level"))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}

	var out io.Writer = os.Stderr
	if path := config.GetString("log.file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err == nil {
			file = f
			out = f
		}
	}

	logger = log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "macchain",
	})
}

// SetOutput replaces the destination, mainly for tests
func SetOutput(w io.Writer, level log.Level) {
	logger = log.NewWithOptions(w, log.Options{Level: level})
}

// Close releases the log file
func Close() {
	if file != nil {
		_ = file.Close()
		file = nil
	}
}

func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// GetLogger returns the underlying logger, nil before Init
func GetLogger() *log.Logger {
	return logger
}
