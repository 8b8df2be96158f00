package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/scheduler"
	"github.com/macchain/backend/internal/util"
	"go.uber.org/zap"
)

// RunDailyAnalysis pre-generates verse analyses for today, or for ?day=
// POST /api/v1/admin/analysis/run
func (h *Handlers) RunDailyAnalysis(c *gin.Context) {
	if h.dailyAnalysis == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("analysis scheduler"))
		return
	}

	ctx := c.Request.Context()
	var (
		result *scheduler.RunResult
		err    error
	)
	if dayParam := c.Query("day"); dayParam != "" {
		day, perr := util.ParseIntParam(dayParam)
		if perr != nil {
			util.RespondWithAPIError(c, apierrors.InvalidPlanDay(0))
			return
		}
		result, err = h.dailyAnalysis.RunForDay(ctx, day)
	} else {
		result, err = h.dailyAnalysis.RunNow(ctx)
	}
	if err != nil {
		logger.Log.Warn("Manual analysis run failed", zap.Error(err))
		respondServiceError(c, err, "analysis run")
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunReminders sends the reminders due at this minute
// POST /api/v1/admin/reminders/run
func (h *Handlers) RunReminders(c *gin.Context) {
	if h.reminders == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("reminder scheduler"))
		return
	}
	sent, err := h.reminders.RunAt(c.Request.Context(), h.now())
	if err != nil {
		respondServiceError(c, err, "reminders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
