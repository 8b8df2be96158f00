package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/util"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every server
// instance. Without Redis it degrades to the in-memory token bucket.
func RedisRateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	local := newRateLimiter(config)
	config = local.config

	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			local.handle(c)
			return
		}

		clientKey := config.KeyFunc(c)
		key := cache.Key("rate_limit", config.Name, clientKey)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := redisClient.IncrBy(ctx, key, 1)
		if err != nil {
			// fail closed
			logger.Log.Error("Rate limit increment failed",
				zap.String("limiter", config.Name),
				zap.String("client", clientKey),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		if count == 1 {
			if err := redisClient.Expire(ctx, key, config.Window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					zap.String("client", clientKey),
					zap.Error(err),
				)
			}
		}

		remaining := int64(config.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(config.Limit) {
			retryAfter := int(config.Window.Seconds())
			if ttl, err := redisClient.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds()) + 1
			}
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("limiter", config.Name),
				zap.Int64("current_requests", count),
			)
			RecordRateLimitExceeded(config.Name, c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			util.RespondWithAPIError(c, errors.RateLimited(""))
			return
		}

		c.Next()
	}
}
