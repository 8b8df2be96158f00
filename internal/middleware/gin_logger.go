package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/logger"
	"go.uber.org/zap"
)

// GinLoggerMiddleware logs HTTP requests with structured fields.
// This replaces gin.Logger.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			logger.WithIP(c.ClientIP()),
			logger.WithStatus(statusCode),
			zap.Int("response_size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		if requestID := c.GetString("request_id"); requestID != "" {
			fields = append(fields, logger.WithRequestID(requestID))
		}
		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, logger.WithUserID(userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			logger.Log.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
