package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/cache"
)

// Health reports database and Redis reachability
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	// Redis is optional; losing it degrades caching but not the API
	if rc := cache.GetRedisClient(); rc != nil {
		checks["redis"] = "ok"
		if err := rc.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
		}
	} else {
		checks["redis"] = "disabled"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"service":   "macchain-backend",
		"checks":    checks,
		"timestamp": h.now().UTC(),
	})
}
