package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/util"
)

// TokenValidator resolves a bearer token to its user
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.User, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// A bare token without the scheme is accepted too.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("username", user.Username)
	c.Set("is_admin", user.IsAdmin)
	c.Set("user", user)
}

// AuthMiddleware rejects requests without a valid bearer token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			return
		}

		user, err := validator.ValidateToken(token)
		if err != nil {
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid token is sent
// and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := BearerToken(c); token != "" {
			if user, err := validator.ValidateToken(token); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}
