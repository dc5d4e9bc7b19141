package handler

import (
	"net/http"
	"time"

	"chat-backend/internal/application"
	"chat-backend/internal/domain"
	"chat-backend/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RouterDeps carries everything the HTTP surface needs. Redis may be nil,
// which disables rate limiting.
type RouterDeps struct {
	ServiceName string
	CORSOrigins []string

	Sessions  *application.SessionService
	Messages  *application.MessageLog
	Assembler *application.Assembler
	Resolver  domain.IdentityResolver

	Redis        *redis.Client
	RedisPrefix  string
	RateLimitQPS int

	Log *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logger(deps.Log))
	r.Use(middleware.CORS(deps.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"service":   deps.ServiceName,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	sessions := NewSessionHandler(deps.Sessions, deps.Log)
	messages := NewMessageHandler(deps.Messages, deps.Assembler, deps.Log)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Resolver, deps.Log))
	if deps.Redis != nil && deps.RateLimitQPS > 0 {
		api.Use(middleware.RateLimit(deps.Redis, deps.RedisPrefix, deps.RateLimitQPS, deps.Log))
	}
	{
		api.GET("/me", Me)

		api.GET("/sessions", sessions.List)
		api.POST("/sessions", sessions.Create)
		api.PATCH("/sessions/:sid", sessions.Rename)
		api.DELETE("/sessions/:sid", sessions.Delete)

		api.GET("/sessions/:sid/messages", messages.List)
		api.POST("/sessions/:sid/messages", messages.Send)
	}
	return r
}

// Me echoes the resolved identity.
func Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	body := gin.H{"uid": identity.UserID}
	if identity.Email != "" {
		body["email"] = identity.Email
	}
	if identity.Name != "" {
		body["name"] = identity.Name
	}
	c.JSON(http.StatusOK, body)
}
