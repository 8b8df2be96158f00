package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/stats"
	"github.com/macchain/backend/internal/util"
)

func periodParam(c *gin.Context) int {
	return stats.NormalizePeriod(util.ParseInt(c.Query("period"), 30))
}

// GetStats returns the 30-day reading summary
// GET /api/v1/stats
func (h *Handlers) GetStats(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	base, err := h.stats.Base(c.Request.Context(), userID, h.now())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, base)
}

// GetStatsOverview returns totals and top books for a period
// GET /api/v1/stats/overview?period=7|30|90|365
func (h *Handlers) GetStatsOverview(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	overview, err := h.stats.Overview(c.Request.Context(), userID, periodParam(c), h.now())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetStatsPatterns returns hourly, weekday and monthly buckets
// GET /api/v1/stats/patterns
func (h *Handlers) GetStatsPatterns(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	patterns, err := h.stats.Patterns(c.Request.Context(), userID, periodParam(c), h.now())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, patterns)
}

// GetStatsGrowth compares the period with the one before it. With
// ?journey=true the response also carries the day-by-day journey.
// GET /api/v1/stats/growth
func (h *Handlers) GetStatsGrowth(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	period := periodParam(c)

	growth, err := h.stats.Growth(ctx, userID, period, h.now())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	if !util.ParseBool(c.Query("journey"), false) {
		c.JSON(http.StatusOK, growth)
		return
	}

	journey, err := h.stats.Journey(ctx, userID, period, h.now())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"growth": growth, "journey": journey})
}
