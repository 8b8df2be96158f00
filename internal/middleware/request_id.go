package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware tags each request with X-Request-ID, generating one
// when the client did not send it. X-Client-ID is exposed as client_id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		if clientID := c.GetHeader("X-Client-ID"); clientID != "" {
			c.Set("client_id", clientID)
		}

		c.Next()
	}
}
