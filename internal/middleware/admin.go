package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/util"
)

// RequireAdmin must run after AuthMiddleware. The admin flag comes from the
// user row loaded while validating the token, so a demoted admin loses
// access on the next request.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_id") == "" {
			util.RespondUnauthorized(c)
			return
		}
		if !c.GetBool("is_admin") {
			util.RespondForbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}
