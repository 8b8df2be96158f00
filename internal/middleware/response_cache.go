package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/logger"
	"go.uber.org/zap"
)

const responseCacheName = "response_cache"

// ResponseCacheMiddleware caches successful GET responses in Redis.
// Cache key is response:{path}[:{query}][:{user_id}] and X-Cache reports
// HIT or MISS.
func ResponseCacheMiddleware(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			c.Next()
			return
		}

		cacheKey := generateCacheKey(c.Request.URL.Path, c.Request.URL.RawQuery, c.GetString("user_id"))
		ctx := c.Request.Context()

		startTime := time.Now()
		cachedData, err := redisClient.Get(ctx, cacheKey)
		RecordCacheOperation("GET", responseCacheName, time.Since(startTime))

		if err == nil {
			RecordCacheHit(responseCacheName)
			c.Header("X-Cache", "HIT")
			c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cachedData))
			c.Abort()
			return
		}
		RecordCacheMiss(responseCacheName)

		writer := &cachedResponseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}

		setStartTime := time.Now()
		if err := redisClient.SetEx(ctx, cacheKey, writer.body.String(), ttl); err != nil {
			logger.Log.Debug("Failed to write response to cache",
				zap.String("key", cacheKey),
				zap.Error(err),
			)
			return
		}
		RecordCacheOperation("SET", responseCacheName, time.Since(setStartTime))
	}
}

func generateCacheKey(path, query, userID string) string {
	key := "response:" + path
	if query != "" {
		key += ":" + query
	}
	if userID != "" {
		key += ":" + userID
	}
	return key
}

// cachedResponseWriter tees the response body so it can be cached
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheInvalidationMiddleware clears cached responses matching the given
// glob patterns after a successful POST, PUT or DELETE.
func CacheInvalidationMiddleware(patterns ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 400 {
			return
		}

		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			return
		}

		for _, pattern := range patterns {
			n, err := redisClient.DeletePattern(c.Request.Context(), pattern)
			if err != nil {
				logger.Log.Warn("Failed to invalidate cache",
					zap.String("pattern", pattern),
					zap.Error(err),
				)
				continue
			}
			if n > 0 {
				logger.Log.Debug("Cache invalidated",
					zap.String("pattern", pattern),
					zap.Int("keys", n),
				)
			}
		}
	}
}
