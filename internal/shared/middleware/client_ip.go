package middleware

import (
	"context"

	"flashsale-backend/internal/shared/utils"

	"github.com/gin-gonic/gin"
)

type clientIPKey struct{}

// ClientIPMiddleware extracts the first-hop client IP and injects it into both
// the gin context and the request context so services and the admission
// limiter key on the same identity.
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := utils.ExtractClientIP(c)

		c.Set("client_ip", clientIP)

		ctx := context.WithValue(c.Request.Context(), clientIPKey{}, clientIP)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetClientIPFromContext retrieves the client IP from context.
// Returns empty string if not found.
func GetClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}
