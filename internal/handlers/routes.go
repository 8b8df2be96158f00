package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/middleware"
	"github.com/macchain/backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	planCacheTTL       = 10 * time.Minute
	categoriesCacheTTL = 5 * time.Minute
)

// RouteOptions carries what the router needs beyond the handlers
type RouteOptions struct {
	Tokens             middleware.TokenValidator
	WebSocket          *websocket.Handler
	RateLimitPerMinute int
}

// RegisterRoutes mounts /health, /metrics and the /api/v1 surface
func (h *Handlers) RegisterRoutes(r *gin.Engine, opts RouteOptions) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	if opts.RateLimitPerMinute > 0 {
		api.Use(middleware.RateLimit(opts.RateLimitPerMinute))
	}

	authRequired := middleware.AuthMiddleware(opts.Tokens)
	authOptional := middleware.OptionalAuthMiddleware(opts.Tokens)
	invalidateCommunity := middleware.CacheInvalidationMiddleware(
		"response:/api/v1/community/*",
	)

	authGroup := api.Group("/auth")
	{
		limited := authGroup.Group("", middleware.RedisRateLimitMiddleware(middleware.AuthRateLimitConfig()))
		limited.POST("/register", h.Register)
		limited.POST("/login", h.Login)
		limited.POST("/reset-password", h.RequestPasswordReset)
		limited.POST("/reset-password/confirm", h.ConfirmPasswordReset)

		authGroup.GET("/me", authRequired, h.Me)
	}

	users := api.Group("/users/me", authRequired)
	{
		users.GET("", h.GetMyProfile)
		users.PUT("", h.UpdateMyProfile)
		users.POST("/avatar", middleware.RateLimitUpload(), h.UploadAvatar)
		users.GET("/progress", h.GetMyProgress)
	}

	plan := api.Group("/plan")
	{
		plan.GET("/day/:day", middleware.ResponseCacheMiddleware(planCacheTTL), h.GetPlanDay)
		plan.GET("/today", authRequired, h.GetToday)
		plan.GET("/date/:date", authRequired, h.GetPlanDate)
	}

	progress := api.Group("/progress", authRequired)
	{
		progress.PUT("/:date/readings/:readingId", h.SetReadingProgress)
		progress.GET("/history", h.GetProgressHistory)
	}

	statsGroup := api.Group("/stats", authRequired)
	{
		statsGroup.GET("", h.GetStats)
		statsGroup.GET("/overview", h.GetStatsOverview)
		statsGroup.GET("/patterns", h.GetStatsPatterns)
		statsGroup.GET("/growth", h.GetStatsGrowth)
	}

	api.GET("/settings", authRequired, h.GetSettings)
	api.PUT("/settings", authRequired, h.UpdateSettings)
	api.GET("/consent", authRequired, h.GetConsent)
	api.PUT("/consent", authRequired, h.UpdateConsent)

	communityGroup := api.Group("/community")
	{
		communityGroup.GET("/categories", middleware.ResponseCacheMiddleware(categoriesCacheTTL), h.GetCategories)
		communityGroup.GET("/discussions", authOptional, h.ListDiscussions)
		communityGroup.GET("/discussions/:id", authOptional, h.GetDiscussion)
		communityGroup.GET("/discussions/:id/comments", authOptional, h.GetComments)
		communityGroup.GET("/search", authOptional, h.SearchDiscussions)

		writes := communityGroup.Group("", authRequired, middleware.IdempotencyMiddleware(), invalidateCommunity)
		writes.POST("/discussions", h.CreateDiscussion)
		writes.PUT("/discussions/:id", h.UpdateDiscussion)
		writes.DELETE("/discussions/:id", h.DeleteDiscussion)
		writes.POST("/discussions/:id/like", h.ToggleDiscussionLike)
		writes.POST("/discussions/:id/bookmark", h.ToggleBookmark)
		writes.POST("/discussions/:id/comments", h.CreateComment)
		writes.PUT("/comments/:id", h.UpdateComment)
		writes.DELETE("/comments/:id", h.DeleteComment)
		writes.POST("/comments/:id/like", h.ToggleCommentLike)

		communityGroup.GET("/bookmarks", authRequired, h.GetMyBookmarks)
	}

	analysisGroup := api.Group("/analysis", authRequired)
	{
		analysisGroup.POST("", h.AnalyzePassage)
		analysisGroup.POST("/verse/:book/:chapter/:verse", h.AnalyzeVerse)
		analysisGroup.GET("/chapter/:book/:chapter", h.AnalyzeChapter)
		analysisGroup.POST("/saved", h.SaveAnalysis)
		analysisGroup.GET("/saved", h.GetSavedAnalyses)
	}

	notificationsGroup := api.Group("/notifications", authRequired)
	{
		notificationsGroup.GET("", h.GetNotifications)
		notificationsGroup.GET("/unread-count", h.GetUnreadCount)
		notificationsGroup.PUT("/read-all", h.MarkAllNotificationsRead)
		notificationsGroup.PUT("/:id/read", h.MarkNotificationRead)
	}

	admin := api.Group("/admin", authRequired, middleware.RequireAdmin())
	{
		admin.POST("/analysis/run", h.RunDailyAnalysis)
		admin.POST("/reminders/run", h.RunReminders)
	}

	if opts.WebSocket != nil {
		// /ws reads its token from ?token= or the Authorization header
		api.GET("/ws", opts.WebSocket.HandleWebSocket)
		api.GET("/ws/online", authRequired, opts.WebSocket.HandleOnline)
		admin.GET("/ws/metrics", opts.WebSocket.HandleMetrics)
	}
}
