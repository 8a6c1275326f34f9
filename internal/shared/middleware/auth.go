package middleware

import (
	"fmt"
	"strings"
	"time"

	"flashsale-backend/pkg/cache"
	"flashsale-backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// cachedIdentity memoizes the validated claims for a token id so repeated
// requests skip re-parsing overhead on the read side.
type cachedIdentity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

const identityTTL = 30 * time.Minute

// AuthMiddleware validates the bearer token, rejects revoked tokens, and puts
// userID / email / role into the gin context. Token issuance lives outside
// this service; only validation and revocation checks happen here.
func AuthMiddleware(manager *jwt.Manager, kv cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := manager.ValidateAccessToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			abortUnauthorized(c, "invalid user ID in token")
			return
		}

		ctx := c.Request.Context()
		ident := cachedIdentity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}

		// Revocation set: logout writes revoked:<jti> with the token's
		// remaining lifetime. Cache errors fail open; a KV outage must not
		// take down the read path.
		if claims.ID != "" {
			if revoked, err := kv.Exists(ctx, "revoked:"+claims.ID); err == nil && revoked {
				abortUnauthorized(c, "token revoked")
				return
			}

			// The memoized identity is authoritative once written; a role
			// change lands on the next request by overwriting the memo.
			key := "user:" + claims.ID
			var cached cachedIdentity
			if found, err := kv.Get(ctx, key, &cached); err == nil && found {
				ident = cached
			} else {
				_ = kv.Set(ctx, key, ident, identityTTL)
			}
		}

		c.Set("userID", userID)
		c.Set("email", ident.Email)
		c.Set("role", ident.Role)
		c.Set("tokenID", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("tokenExpiresAt", claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.JSON(401, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": msg}})
	c.Abort()
}

// MustUserID returns the authenticated user id set by AuthMiddleware.
func MustUserID(c *gin.Context) (uuid.UUID, error) {
	v, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, fmt.Errorf("user not authenticated")
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user not authenticated")
	}
	return id, nil
}
