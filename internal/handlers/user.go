package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/util"
	"go.uber.org/zap"
)

// UpdateProfileRequest changes only the non-nil fields
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// GetMyProfile returns the authenticated user's profile
// GET /api/v1/users/me
func (h *Handlers) GetMyProfile(c *gin.Context) {
	h.Me(c)
}

// UpdateMyProfile updates display name and bio
// PUT /api/v1/users/me
func (h *Handlers) UpdateMyProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if !util.RuneLenBetween(name, 1, 50) {
			util.RespondValidationError(c, "display_name", "display name must be between 1 and 50 characters")
			return
		}
		fields["display_name"] = name
	}
	if req.Bio != nil {
		if !util.RuneLenBetween(*req.Bio, 0, 500) {
			util.RespondValidationError(c, "bio", "bio must be at most 500 characters")
			return
		}
		fields["bio"] = *req.Bio
	}

	ctx := c.Request.Context()
	if err := h.users.UpdateFields(ctx, userID, fields); err != nil {
		respondServiceError(c, err, "user")
		return
	}
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UploadAvatar stores a new avatar image and points the profile at it
// POST /api/v1/users/me/avatar
func (h *Handlers) UploadAvatar(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if h.uploader == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("avatar storage"))
		return
	}

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		util.RespondBadRequest(c, "avatar file is required")
		return
	}
	defer file.Close()

	if err := util.ValidateAvatarUpload(header); err != nil {
		util.RespondValidationError(c, "avatar", err.Error())
		return
	}

	ctx := c.Request.Context()
	result, err := h.uploader.UploadAvatar(ctx, userID, file, header)
	if err != nil {
		logger.Log.Error("Avatar upload failed", logger.WithUserID(userID), zap.Error(err))
		util.RespondInternalError(c, "failed to upload avatar")
		return
	}

	if err := h.users.UpdateFields(ctx, userID, map[string]interface{}{"avatar_url": result.URL}); err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": result.URL})
}

// GetMyProgress reports the current plan day, today's completions and streak
// GET /api/v1/users/me/progress
func (h *Handlers) GetMyProgress(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	progress, err := h.plan.UserProgress(c.Request.Context(), userID, h.now())
	if err != nil {
		respondServiceError(c, err, "progress")
		return
	}
	c.JSON(http.StatusOK, progress)
}
