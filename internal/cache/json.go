package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Key joins parts into a colon-separated cache key
func Key(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// GetJSON decodes a cached value into dest. A nil client, a miss, or a
// decode failure all report found=false.
func GetJSON(ctx context.Context, rc *RedisClient, key string, dest interface{}) bool {
	if rc == nil {
		return false
	}
	ctx, span := telemetry.TraceCacheCall(ctx, "get", key)
	defer span.End()

	raw, err := rc.Get(ctx, key)
	if err != nil {
		metrics.Get().CacheMissesTotal.WithLabelValues(cacheName(key)).Inc()
		if !IsMiss(err) {
			logger.Log.Debug("Cache retrieval failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logger.Log.Debug("Cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	metrics.Get().CacheHitsTotal.WithLabelValues(cacheName(key)).Inc()
	return true
}

// cacheName is the first key segment, used as the metrics label
func cacheName(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// SetJSON stores value with a TTL; errors are logged and swallowed
func SetJSON(ctx context.Context, rc *RedisClient, key string, value interface{}, ttl time.Duration) {
	if rc == nil {
		return
	}
	ctx, span := telemetry.TraceCacheCall(ctx, "set", key)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := rc.SetEx(ctx, key, data, ttl); err != nil {
		telemetry.RecordServiceError(span, err)
		logger.Log.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
