package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/analysis"
	"github.com/macchain/backend/internal/util"
)

// AnalyzePassage runs a passage analysis for the caller
// POST /api/v1/analysis
func (h *Handlers) AnalyzePassage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req analysis.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	result, err := h.analysis.Analyze(requestContext(c), userID, req)
	if err != nil {
		respondServiceError(c, err, "analysis")
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeVerse returns the word-level analysis of one verse. The body may
// carry the verse's Hebrew text.
// POST /api/v1/analysis/verse/:book/:chapter/:verse
func (h *Handlers) AnalyzeVerse(c *gin.Context) {
	chapter, err := util.ParseIntParam(c.Param("chapter"))
	if err != nil {
		util.RespondValidationError(c, "chapter", "chapter must be a number")
		return
	}
	verse, err := util.ParseIntParam(c.Param("verse"))
	if err != nil {
		util.RespondValidationError(c, "verse", "verse must be a number")
		return
	}

	var req struct {
		HebrewText string `json:"hebrew_text"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	}

	result, err := h.analysis.AnalyzeVerse(c.Request.Context(), c.Param("book"), chapter, verse, req.HebrewText)
	if err != nil {
		respondServiceError(c, err, "analysis")
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeChapter returns the analysis of a chapter's first verse
// GET /api/v1/analysis/chapter/:book/:chapter
func (h *Handlers) AnalyzeChapter(c *gin.Context) {
	chapter, err := util.ParseIntParam(c.Param("chapter"))
	if err != nil {
		util.RespondValidationError(c, "chapter", "chapter must be a number")
		return
	}
	result, err := h.analysis.AnalyzeChapter(c.Request.Context(), c.Param("book"), chapter)
	if err != nil {
		respondServiceError(c, err, "analysis")
		return
	}
	c.JSON(http.StatusOK, result)
}

// SaveAnalysis keeps an analysis against a plan reading
// POST /api/v1/analysis/saved
func (h *Handlers) SaveAnalysis(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req analysis.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	saved, err := h.analysis.Save(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "analysis")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"analysis": saved})
}

// GetSavedAnalyses lists the caller's saved analyses
// GET /api/v1/analysis/saved?limit=
func (h *Handlers) GetSavedAnalyses(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	saved, err := h.analysis.ListSaved(c.Request.Context(), userID, util.ParseInt(c.Query("limit"), 0))
	if err != nil {
		respondServiceError(c, err, "analysis")
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": saved, "count": len(saved)})
}
