package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		m.HTTPActiveConnections.Inc()
		defer m.HTTPActiveConnections.Dec()

		startTime := time.Now()
		c.Next()

		method := c.Request.Method
		// route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		// numeric so Grafana can match status=~"5.."
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(startTime).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

func RecordCacheHit(cacheName string) {
	metrics.Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

func RecordCacheMiss(cacheName string) {
	metrics.Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

func RecordCacheOperation(operation, cacheName string, duration time.Duration) {
	metrics.Get().CacheOperationDuration.WithLabelValues(operation, cacheName).Observe(duration.Seconds())
}

func RecordRateLimitExceeded(limiter, path string) {
	metrics.Get().RateLimitExceededTotal.WithLabelValues(limiter, path).Inc()
}

func RecordError(errorType, component string) {
	metrics.Get().ErrorsTotal.WithLabelValues(errorType, component).Inc()
}
