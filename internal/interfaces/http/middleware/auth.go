package middleware

import (
	"net/http"
	"strings"

	"chat-backend/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	UserIDKey   = "user_id"
	IdentityKey = "identity"
)

// Auth resolves the bearer token into an identity. Any resolver failure is
// a 401; nothing behind this middleware runs for anonymous callers.
func Auth(resolver domain.IdentityResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "malformed Authorization header")
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil || identity == nil || identity.UserID == "" {
			log.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(UserIDKey, identity.UserID)
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by Auth.
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*domain.Identity)
	return identity, ok && identity != nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
