package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/util"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns handler panics into a logged 500
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				RecordError("panic", "http")
				logger.Log.Error("Panic recovered",
					zap.String("panic", fmt.Sprint(r)),
					zap.String("path", c.Request.URL.Path),
					logger.WithRequestID(c.GetString("request_id")),
					zap.Stack("stack"),
				)
				util.RespondInternalError(c, "")
			}
		}()
		c.Next()
	}
}
