package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge

	// Cache
	CacheHitsTotal         *prometheus.CounterVec
	CacheMissesTotal       *prometheus.CounterVec
	CacheOperationDuration *prometheus.HistogramVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Database
	DatabaseQueriesTotal  *prometheus.CounterVec
	DatabaseQueryDuration *prometheus.HistogramVec

	// Realtime
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Reading
	ReadingsCompletedTotal prometheus.Counter
	ReadingsUndoneTotal    prometheus.Counter

	// Community
	CommunityActionsTotal *prometheus.CounterVec

	// Analysis
	AnalysesGeneratedTotal *prometheus.CounterVec
	AnalysisDuration       *prometheus.HistogramVec

	// Notifications
	NotificationsTotal *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec

	// Search
	SearchQueriesTotal *prometheus.CounterVec

	// Errors
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics once
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_active_requests",
					Help: "Number of requests currently being served",
				},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),
			CacheOperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cache_operation_duration_seconds",
					Help:    "Cache operation latency in seconds",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
				},
				[]string{"operation", "cache_name"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"limiter", "path"},
			),

			DatabaseQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_queries_total",
					Help: "Total number of database queries",
				},
				[]string{"operation", "status"},
			),
			DatabaseQueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.0005, .001, .005, .01, .05, .1, .2, .5, 1},
				},
				[]string{"operation"},
			),

			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections",
					Help: "Currently connected realtime clients",
				},
			),
			WebSocketMessages: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_total",
					Help: "Realtime messages by direction and type",
				},
				[]string{"direction", "type"},
			),

			ReadingsCompletedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "readings_completed_total",
					Help: "Passages marked complete",
				},
			),
			ReadingsUndoneTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "readings_undone_total",
					Help: "Passages marked incomplete again",
				},
			),

			CommunityActionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "community_actions_total",
					Help: "Community writes by action",
				},
				[]string{"action"},
			),

			AnalysesGeneratedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "analyses_generated_total",
					Help: "Passage and verse analyses by type and source",
				},
				[]string{"type", "source"},
			),
			AnalysisDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "analysis_duration_seconds",
					Help:    "Time to generate an analysis",
					Buckets: []float64{.001, .01, .1, .5, 1, 2.5, 5, 10},
				},
				[]string{"source"},
			),

			NotificationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_total",
					Help: "Notification deliveries by type and outcome",
				},
				[]string{"type", "status"},
			),
			QueueDepth: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "queue_depth",
					Help: "Pending items per queue",
				},
				[]string{"queue"},
			),

			SearchQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_queries_total",
					Help: "Discussion searches by backend",
				},
				[]string{"backend"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "component"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
