package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/community"
	"github.com/macchain/backend/internal/util"
)

// GetCategories lists the active discussion categories
// GET /api/v1/community/categories
func (h *Handlers) GetCategories(c *gin.Context) {
	categories, err := h.community.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ListDiscussions returns a page of discussions
// GET /api/v1/community/discussions?category_id=&page=&limit=&sort=latest|popular|oldest
func (h *Handlers) ListDiscussions(c *gin.Context) {
	params := community.ListParams{
		CategoryID: c.Query("category_id"),
		Page:       util.ParseInt(c.Query("page"), 1),
		Limit:      util.ParseInt(c.Query("limit"), 20),
		Sort:       c.DefaultQuery("sort", community.SortLatest),
	}
	list, err := h.community.ListDiscussions(c.Request.Context(), util.OptionalUserID(c), params)
	if err != nil {
		respondServiceError(c, err, "discussions")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetDiscussion returns one discussion and counts the view
// GET /api/v1/community/discussions/:id
func (h *Handlers) GetDiscussion(c *gin.Context) {
	d, err := h.community.GetDiscussion(requestContext(c), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussion": d})
}

// CreateDiscussion starts a new discussion
// POST /api/v1/community/discussions
func (h *Handlers) CreateDiscussion(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req community.CreateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	d, err := h.community.CreateDiscussion(requestContext(c), userID, req)
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"discussion": d})
}

// UpdateDiscussion edits the caller's own discussion
// PUT /api/v1/community/discussions/:id
func (h *Handlers) UpdateDiscussion(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req community.UpdateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	d, err := h.community.UpdateDiscussion(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussion": d})
}

// DeleteDiscussion soft-deletes the caller's own discussion
// DELETE /api/v1/community/discussions/:id
func (h *Handlers) DeleteDiscussion(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.community.DeleteDiscussion(requestContext(c), userID, c.Param("id")); err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "discussion deleted"})
}

// ToggleDiscussionLike likes or unlikes a discussion
// POST /api/v1/community/discussions/:id/like
func (h *Handlers) ToggleDiscussionLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.community.ToggleDiscussionLike(requestContext(c), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ToggleBookmark bookmarks or unbookmarks a discussion
// POST /api/v1/community/discussions/:id/bookmark
func (h *Handlers) ToggleBookmark(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.community.ToggleBookmark(requestContext(c), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMyBookmarks lists the caller's bookmarked discussions
// GET /api/v1/community/bookmarks
func (h *Handlers) GetMyBookmarks(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	list, err := h.community.MyBookmarks(c.Request.Context(), userID,
		util.ParseInt(c.Query("page"), 1), util.ParseInt(c.Query("limit"), 20))
	if err != nil {
		respondServiceError(c, err, "bookmarks")
		return
	}
	c.JSON(http.StatusOK, list)
}

// SearchDiscussions runs a full-text search over discussions
// GET /api/v1/community/search?q=
func (h *Handlers) SearchDiscussions(c *gin.Context) {
	list, backend, err := h.community.SearchDiscussions(c.Request.Context(), util.OptionalUserID(c),
		c.Query("q"), util.ParseInt(c.Query("page"), 1), util.ParseInt(c.Query("limit"), 20))
	if err != nil {
		respondServiceError(c, err, "discussions")
		return
	}
	c.Header("X-Search-Backend", backend)
	c.JSON(http.StatusOK, list)
}
