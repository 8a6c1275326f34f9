package middleware

import (
	"fmt"
	"time"

	"flashsale-backend/internal/shared/response"
	"flashsale-backend/pkg/cache"
	"flashsale-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RateLimitPolicy is a named fixed-window admission policy.
type RateLimitPolicy struct {
	Name      string
	Window    time.Duration
	Max       int64
	SkipAdmin bool
}

// Default policies. Windows and limits are overridable from config.
func GeneralPolicy(window time.Duration, max int64) RateLimitPolicy {
	return RateLimitPolicy{Name: "general", Window: window, Max: max}
}

func AuthPolicy(window time.Duration, max int64) RateLimitPolicy {
	return RateLimitPolicy{Name: "auth", Window: window, Max: max}
}

func ReservationCreatePolicy(window time.Duration, max int64) RateLimitPolicy {
	return RateLimitPolicy{Name: "reservation_create", Window: window, Max: max, SkipAdmin: true}
}

// RateLimit throttles requests per caller identity using an atomic counter in
// the KV store. Identity is the authenticated user id when present, otherwise
// the first-hop client IP. On KV failure the limiter fails open: availability
// of the write path wins over strict enforcement.
func RateLimit(kv cache.Cache, policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if policy.SkipAdmin {
			if role, ok := c.Get("role"); ok && role == "admin" {
				c.Next()
				return
			}
		}

		identity := limiterIdentity(c)
		key := fmt.Sprintf("ratelimit:%s:%s", policy.Name, identity)

		ctx := c.Request.Context()

		count, err := kv.Increment(ctx, key)
		if err != nil {
			logger.Warn("rate limiter unavailable, failing open", map[string]interface{}{
				"policy": policy.Name,
				"error":  err.Error(),
			})
			c.Next()
			return
		}

		// First hit in the window starts the clock.
		if count == 1 {
			if err := kv.Expire(ctx, key, policy.Window); err != nil {
				logger.Warn("rate limiter expire failed", map[string]interface{}{
					"policy": policy.Name,
					"error":  err.Error(),
				})
			}
		}

		if count > policy.Max {
			retryAfter := int(policy.Window / time.Second)
			if ttl, err := kv.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = int(ttl/time.Second) + 1
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			response.RateLimited(c, retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}

func limiterIdentity(c *gin.Context) string {
	if v, exists := c.Get("userID"); exists {
		if id, ok := v.(uuid.UUID); ok && id != uuid.Nil {
			return "user:" + id.String()
		}
	}
	if ip := c.GetString("client_ip"); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + c.ClientIP()
}
