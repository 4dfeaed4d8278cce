package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/gin/response"
	"hydration-user-service/pkg/logger"
	"hydration-user-service/pkg/ratelimit"
)

// unmatchedRoute groups requests that hit no registered route.
const unmatchedRoute = "unmatched"

// RateLimiter returns a Gin middleware for rate limiting using the token bucket algorithm.
// Buckets are keyed by method, matched route template and client IP, so
// distinct URLs under one route share a bucket.
func RateLimiter(limiter ratelimit.Limiter, config ratelimit.Config, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !config.Enabled {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		clientIP := c.ClientIP()
		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, route, clientIP)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open.
			logger.WithContext(c.Request.Context(), log).Warn("rate limiter error, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			response.Status(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS",
				fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)", config.RequestsPerSecond, config.BurstCapacity))
			return
		}

		c.Next()
	}
}
