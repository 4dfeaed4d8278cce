package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/gin/handler"
	"hydration-user-service/internal/adapter/gin/middleware"
	"hydration-user-service/internal/adapter/gin/response"
	"hydration-user-service/internal/web"
	"hydration-user-service/pkg/ratelimit"
)

// Handlers groups the HTTP handlers mounted by SetupRouter.
type Handlers struct {
	Pages  *handler.PageHandler
	Auth   *handler.AuthHandler
	RPC    *handler.RPCHandler
	Health *handler.HealthHandler
}

// SetupRouter configures and returns a Gin router with all routes and middleware.
// Forwarded client IP headers are honoured only from trustedProxies; nil trusts none.
func SetupRouter(
	h Handlers,
	sessions *middleware.Sessions,
	limiter ratelimit.Limiter,
	rateLimit ratelimit.Config,
	trustedProxies []string,
	log *zap.Logger,
) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	router.GET("/health", h.Health.Health)
	router.StaticFS("/static", web.Static())

	limited := middleware.RateLimiter(limiter, rateLimit, log)

	site := router.Group("", sessions.LoadSession())
	{
		site.GET("/", h.Pages.Index)
		site.GET("/guide", h.Pages.Guide)
		site.GET("/users", h.Pages.Users)
		site.GET("/users/client", h.Pages.UsersClient)
		site.GET("/dashboard", sessions.RequireAuth(), h.Pages.Dashboard)

		site.GET("/login", sessions.RequireUnauth(), h.Auth.LoginForm)
		site.POST("/login", limited, sessions.RequireUnauth(), h.Auth.Login)
		site.POST("/logout", h.Auth.Logout)
	}

	api := router.Group("/api", limited, sessions.LoadSession())
	{
		api.GET("/rpc/:procedure", h.RPC.Call)
		api.POST("/rpc/:procedure", h.RPC.Call)
	}

	router.NoRoute(sessions.LoadSession(), func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			response.Status(c, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
			return
		}
		h.Pages.NotFound(c)
	})

	return router, nil
}
