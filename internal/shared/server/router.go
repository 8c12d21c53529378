package server

import (
	"github.com/gin-gonic/gin"

	"chatbot-backend/internal/chat"
	"chatbot-backend/internal/services/health"
	"chatbot-backend/internal/shared/config"
	"chatbot-backend/internal/shared/metrics"
	"chatbot-backend/internal/shared/server/middleware"
	"chatbot-backend/internal/shared/server/respond"
	"chatbot-backend/internal/web"
)

const (
	rateLimitGroupSend = "SEND"
)

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Config config.Config
	Chat   *chat.Handler
	Web    *web.Handler
	Health *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Session(cfg.IsProduction()),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.OK(c, deps.Health.Status())
	})
	r.GET("/metrics", metrics.Handler())
	if deps.Web != nil {
		deps.Web.RegisterRoutes(r)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		GroupFor: sendGroup,
		Rules: map[string]middleware.RateLimitRule{
			rateLimitGroupSend: {
				Rate:  cfg.RateLimitPerMinute / 60.0,
				Burst: cfg.RateLimitBurst,
			},
		},
	}))
	deps.Chat.RegisterRoutes(api)

	return r
}

// sendGroup limits the routes that start background work.
func sendGroup(c *gin.Context) string {
	if c.Request.Method == "POST" {
		return rateLimitGroupSend
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
