package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/util"
)

// GetNotifications lists the caller's notifications, newest first
// GET /api/v1/notifications?unread=true&limit=20&offset=0
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit := util.ParseInt(c.Query("limit"), 20)
	offset := util.ParseInt(c.Query("offset"), 0)
	unreadOnly := util.ParseBool(c.Query("unread"), false)

	ctx := c.Request.Context()
	items, total, err := h.notifications.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		respondServiceError(c, err, "notifications")
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		respondServiceError(c, err, "notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"total":         total,
		"unread":        unread,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetUnreadCount returns the number of unread notifications
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead marks one notification read
// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(requestContext(c), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

// MarkAllNotificationsRead marks every notification read
// PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllRead(requestContext(c), userID)
	if err != nil {
		respondServiceError(c, err, "notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
