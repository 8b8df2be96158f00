package util

import (
	"github.com/gin-gonic/gin"
)

// GetUserIDFromContext extracts the authenticated user ID set by the auth
// middleware. When it is missing it responds 401 and returns false.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		RespondUnauthorized(c)
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		RespondInternalError(c, "invalid user ID in context")
		return "", false
	}
	return userIDStr, true
}

// OptionalUserID returns the user ID when the request was authenticated.
func OptionalUserID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ClientID returns the X-Client-ID header clients send so realtime events
// can be matched to the connection that caused them.
func ClientID(c *gin.Context) string {
	return c.GetHeader("X-Client-ID")
}
