package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ginmiddleware "hydration-user-service/internal/adapter/gin/middleware"
	ginrouter "hydration-user-service/internal/adapter/gin/router"
	"hydration-user-service/pkg/ratelimit"
)

// SetupGinServer creates the HTTP server for pages, the RPC endpoint and health checks
func SetupGinServer(
	handlers ginrouter.Handlers,
	sessions *ginmiddleware.Sessions,
	limiter ratelimit.Limiter,
	rateLimit ratelimit.Config,
	trustedProxies []string,
	environment string,
	addr string,
	l *zap.Logger,
) (*http.Server, error) {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := ginrouter.SetupRouter(handlers, sessions, limiter, rateLimit, trustedProxies, l)
	if err != nil {
		return nil, err
	}

	l.Info("HTTP server configured", zap.String("address", addr))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}
