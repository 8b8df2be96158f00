package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/analysis"
	"github.com/macchain/backend/internal/auth"
	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/community"
	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/database"
	"github.com/macchain/backend/internal/email"
	"github.com/macchain/backend/internal/handlers"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/middleware"
	"github.com/macchain/backend/internal/notifications"
	"github.com/macchain/backend/internal/queue"
	"github.com/macchain/backend/internal/readingplan"
	"github.com/macchain/backend/internal/scheduler"
	"github.com/macchain/backend/internal/search"
	"github.com/macchain/backend/internal/settings"
	"github.com/macchain/backend/internal/stats"
	"github.com/macchain/backend/internal/storage"
	"github.com/macchain/backend/internal/telemetry"
	"github.com/macchain/backend/internal/websocket"
	"go.uber.org/zap"
)

const serviceName = "macchain-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== MacChain server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Enabled:      cfg.Tracing.Enabled,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		if err := telemetry.Shutdown(tp, 5*time.Second); err != nil {
			logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	if err := database.Initialize(cfg.Database, database.Options{
		Environment: cfg.Environment,
		Tracing:     cfg.Tracing.Enabled,
	}); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}
	db := database.DB

	// Redis is optional: without it caching, the shared rate limiter and
	// the durable notification queue fall back to in-process versions
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled() {
		redisClient, err = cache.Connect(cfg.Redis.Host+":"+cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.Log.Warn("Redis unavailable, continuing without it", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	var searchClient *search.Client
	if cfg.ElasticsearchURL != "" {
		searchClient, err = search.NewClient(cfg.ElasticsearchURL)
		if err != nil {
			logger.Log.Warn("Elasticsearch unavailable, search uses the database", zap.Error(err))
			searchClient = nil
		} else if err := searchClient.EnsureIndex(context.Background(), db); err != nil {
			logger.Log.Warn("Failed to prepare search index", zap.Error(err))
		}
	}
	searchService := search.NewService(searchClient, db, redisClient)
	if searchClient != nil {
		reconciler := search.NewReconciliationService(searchClient, db, time.Hour)
		reconciler.Start()
		defer reconciler.Stop()
	}

	var sender email.Sender
	if cfg.AWS.SESFromEmail != "" {
		ses, err := email.NewEmailService(context.Background(), cfg.AWS.Region, cfg.AWS.SESFromEmail, cfg.AWS.SESFromName, cfg.AWS.PublicBaseURL)
		if err != nil {
			logger.Log.Warn("Email disabled", zap.Error(err))
		} else {
			sender = ses
		}
	}

	var uploader storage.AvatarUploader
	if cfg.AWS.S3Bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(context.Background(), cfg.AWS.Region, cfg.AWS.S3Bucket, cfg.AWS.CDNURL)
		if err != nil {
			logger.Log.Warn("Avatar uploads disabled", zap.Error(err))
		} else {
			if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
				logger.Log.Warn("S3 bucket access failed, avatar uploads may fail", zap.Error(err))
			}
			uploader = s3Uploader
		}
	}

	jwtSecret := []byte(cfg.JWTSecret)
	authService := auth.NewService(db, jwtSecret, sender)

	// Realtime hub: row changes, notification pushes and presence
	wsHub := websocket.NewHub()
	wsHub.Start()
	wsHandler := websocket.NewHandler(wsHub, authService)
	if cfg.IsProduction() {
		wsHandler.SetOriginPatterns(cfg.CORSOrigins)
	}
	presenceManager := websocket.NewPresenceManager(wsHub, db, websocket.DefaultPresenceConfig())
	wsHandler.SetPresenceManager(presenceManager)
	presenceManager.Start()

	notificationService := notifications.NewService(db, wsHub)
	notificationService.SetPusher(wsHub)

	var backend queue.Backend = queue.NewMemoryBackend(1024)
	if redisClient != nil {
		backend = queue.NewRedisBackend(redisClient, "")
	}
	notificationQueue := queue.NewNotificationQueue(backend, notifications.NewDeliverer(db, wsHub, sender), queue.Options{})
	notificationService.SetQueue(notificationQueue)
	notificationQueue.Start()
	defer notificationQueue.Stop()

	if n, err := notificationService.RequeuePending(context.Background()); err != nil {
		logger.Log.Warn("Failed to requeue pending notifications", zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("Requeued pending notifications", zap.Int("count", n))
	}

	var generator analysis.Generator
	if cfg.AIAnalysisURL != "" {
		client := analysis.NewClient(cfg.AIAnalysisURL)
		if !client.IsAvailable(context.Background()) {
			logger.Log.Warn("Analysis service not reachable yet, mock templates cover failures",
				zap.String("url", cfg.AIAnalysisURL))
		}
		generator = client
	}
	analysisService := analysis.NewService(db, generator, notificationService)

	dailyAnalysis := scheduler.NewDailyAnalysisScheduler(analysisService, cfg.Scheduler, nil)
	if cfg.Scheduler.AnalysisEnabled {
		dailyAnalysis.Start()
		defer dailyAnalysis.Stop()
	}
	reminders := scheduler.NewReminderScheduler(db, notificationService)
	if cfg.Scheduler.ReminderEnabled {
		reminders.Start()
		defer reminders.Stop()
	}

	h := handlers.NewHandlers(handlers.Deps{
		DB:            db,
		Auth:          authService,
		Plan:          readingplan.NewService(db, redisClient, wsHub, notificationService),
		Stats:         stats.NewService(db),
		Settings:      settings.NewService(db),
		Community:     community.NewService(db, wsHub, notificationService, searchService),
		Analysis:      analysisService,
		Notifications: notificationService,
		Uploader:      uploader,
		DailyAnalysis: dailyAnalysis,
		Reminders:     reminders,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RecoveryMiddleware(),
		middleware.RequestIDMiddleware(),
		middleware.CorrelationMiddleware(),
		middleware.TracingMiddleware(serviceName),
		middleware.SpanEnrichmentMiddleware(),
		middleware.MetricsMiddleware(),
		middleware.GinLoggerMiddleware(),
	)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Client-ID", "X-Request-ID", "Idempotency-Key"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Cache", "X-Search-Backend", "X-RateLimit-Remaining"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws", "/metrics"})))

	h.RegisterRoutes(r, handlers.RouteOptions{
		Tokens:             authService,
		WebSocket:          wsHandler,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("MacChain backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
