package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/settings"
	"github.com/macchain/backend/internal/util"
)

// GetSettings returns the caller's settings, or the defaults
// GET /api/v1/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	s, err := h.settings.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": s})
}

// UpdateSettings applies a partial settings update
// PUT /api/v1/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req settings.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	s, err := h.settings.UpdateSettings(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": s})
}

// GetConsent returns the caller's consent record
// GET /api/v1/consent
func (h *Handlers) GetConsent(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	consent, err := h.settings.GetConsent(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "consent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"consent": consent})
}

// UpdateConsent records accepted or withdrawn consents
// PUT /api/v1/consent
func (h *Handlers) UpdateConsent(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req settings.UpdateConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	consent, err := h.settings.UpdateConsent(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "consent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"consent": consent})
}
