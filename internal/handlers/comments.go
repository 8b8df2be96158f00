package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/community"
	"github.com/macchain/backend/internal/util"
)

// GetComments returns a discussion's comment tree
// GET /api/v1/community/discussions/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	comments, err := h.community.ListComments(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// CreateComment adds a comment or reply to a discussion
// POST /api/v1/community/discussions/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req community.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	comment, err := h.community.CreateComment(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// UpdateComment edits the caller's own comment
// PUT /api/v1/community/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req community.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	comment, err := h.community.UpdateComment(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment soft-deletes the caller's own comment
// DELETE /api/v1/community/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.community.DeleteComment(requestContext(c), userID, c.Param("id")); err != nil {
		respondServiceError(c, err, "comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

// ToggleCommentLike likes or unlikes a comment
// POST /api/v1/community/comments/:id/like
func (h *Handlers) ToggleCommentLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.community.ToggleCommentLike(requestContext(c), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "comment")
		return
	}
	c.JSON(http.StatusOK, result)
}
