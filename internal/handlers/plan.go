package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/bible"
	apierrors "github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/util"
)

// GetPlanDay returns the readings for a day of the plan
// GET /api/v1/plan/day/:day
func (h *Handlers) GetPlanDay(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > bible.DaysInPlan {
		util.RespondWithAPIError(c, apierrors.InvalidPlanDay(day))
		return
	}

	plan, err := h.plan.GetDay(c.Request.Context(), day)
	if err != nil {
		respondServiceError(c, err, "plan day")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetToday returns today's readings in the caller's timezone
// GET /api/v1/plan/today
func (h *Handlers) GetToday(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	readings, err := h.plan.Today(c.Request.Context(), userID, h.now())
	if err != nil {
		respondServiceError(c, err, "plan")
		return
	}
	c.JSON(http.StatusOK, readings)
}

// GetPlanDate returns a date's readings with completion flags
// GET /api/v1/plan/date/:date
func (h *Handlers) GetPlanDate(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	readings, err := h.plan.GetForDate(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		respondServiceError(c, err, "plan")
		return
	}
	c.JSON(http.StatusOK, readings)
}

// SetReadingProgressRequest is the body of a progress update. Completed
// defaults to true.
type SetReadingProgressRequest struct {
	Completed *bool `json:"completed"`
}

// SetReadingProgress marks a reading done or not done
// PUT /api/v1/progress/:date/readings/:readingId
func (h *Handlers) SetReadingProgress(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	readingID, err := util.ParseIntParam(c.Param("readingId"))
	if err != nil {
		util.RespondValidationError(c, "reading_id", "reading id must be a number")
		return
	}

	var req SetReadingProgressRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	progress, err := h.plan.SetCompletion(requestContext(c), userID, c.Param("date"), readingID, completed)
	if err != nil {
		respondServiceError(c, err, "progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// GetProgressHistory returns per-date completion counts between from and to,
// defaulting to the last 30 days
// GET /api/v1/progress/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) GetProgressHistory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	to := c.Query("to")
	if to == "" {
		to = h.plan.LocalDate(userID, h.now())
	}
	from := c.Query("from")
	if from == "" {
		if t, err := bible.ParseDate(to); err == nil {
			from = bible.FormatDate(t.AddDate(0, 0, -29))
		}
	}

	history, err := h.plan.History(c.Request.Context(), userID, from, to)
	if errors.Is(err, bible.ErrInvalidDate) {
		value := from
		if _, perr := bible.ParseDate(to); perr != nil {
			value = to
		}
		util.RespondWithAPIError(c, apierrors.InvalidDate(value))
		return
	}
	if err != nil {
		respondServiceError(c, err, "progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "history": history})
}
