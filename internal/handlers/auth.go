package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/auth"
	"github.com/macchain/backend/internal/util"
)

// Register creates an account and returns a session token
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email and password
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RequestPasswordReset emails a reset link. The response is the same
// whether or not the address has an account.
// POST /api/v1/auth/reset-password
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondServiceError(c, err, "password reset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the email exists, a reset link has been sent"})
}

// ConfirmPasswordReset sets a new password with a reset token
// POST /api/v1/auth/reset-password/confirm
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(c, err, "password reset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
