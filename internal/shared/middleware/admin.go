package middleware

import (
	"flashsale-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware gates a route group to the admin role. Must run after
// AuthMiddleware has populated the role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}

		if r, ok := role.(string); !ok || r != "admin" {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
