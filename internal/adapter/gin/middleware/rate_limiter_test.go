package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hydration-user-service/pkg/ratelimit"
)

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func newLimitedEngine(t *testing.T, limiter ratelimit.Limiter, config ratelimit.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(limiter, config, zaptest.NewLogger(t)))
	r.GET("/api/rpc/:procedure", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine) int {
	return hitPath(r, "/api/rpc/getUsers", "")
}

func hitPath(r *gin.Engine, path, forwardedFor string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	config := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 2, Enabled: true}
	r := newLimitedEngine(t, ratelimit.NewRedisLimiter(client, config), config)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))
	assert.True(t, mr.Exists("ratelimit:tb:GET:/api/rpc/:procedure:192.0.2.1"))
	assert.False(t, mr.Exists("ratelimit:tb:GET:/api/rpc/getUsers:192.0.2.1"))
}

func TestRateLimiter_KeysByRouteTemplate(t *testing.T) {
	config := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1, Enabled: true}
	limiter := ratelimit.NewLocalLimiter(config)
	r := newLimitedEngine(t, limiter, config)

	assert.Equal(t, http.StatusOK, hitPath(r, "/api/rpc/x1", ""))
	for i := 2; i <= 50; i++ {
		assert.Equal(t, http.StatusTooManyRequests, hitPath(r, fmt.Sprintf("/api/rpc/x%d", i), ""))
	}
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimiter_UnmatchedRoutesShareBucket(t *testing.T) {
	config := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1, Enabled: true}
	limiter := ratelimit.NewLocalLimiter(config)
	r := newLimitedEngine(t, limiter, config)
	r.NoRoute(func(c *gin.Context) { c.Status(http.StatusNotFound) })

	assert.Equal(t, http.StatusNotFound, hitPath(r, "/missing/a", ""))
	assert.Equal(t, http.StatusTooManyRequests, hitPath(r, "/missing/b", ""))
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimiter_IgnoresSpoofedForwardedFor(t *testing.T) {
	config := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1, Enabled: true}
	r := newLimitedEngine(t, ratelimit.NewLocalLimiter(config), config)
	require.NoError(t, r.SetTrustedProxies(nil))

	assert.Equal(t, http.StatusOK, hitPath(r, "/api/rpc/getUsers", "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, hitPath(r, "/api/rpc/getUsers", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, hitPath(r, "/api/rpc/getUsers", "203.0.113.3"))
}

func TestRateLimiter_HonoursForwardedForFromTrustedProxy(t *testing.T) {
	config := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1, Enabled: true}
	r := newLimitedEngine(t, ratelimit.NewLocalLimiter(config), config)
	// httptest requests come from 192.0.2.1.
	require.NoError(t, r.SetTrustedProxies([]string{"192.0.2.1"}))

	assert.Equal(t, http.StatusOK, hitPath(r, "/api/rpc/getUsers", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, hitPath(r, "/api/rpc/getUsers", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, hitPath(r, "/api/rpc/getUsers", "203.0.113.1"))
}

func TestRateLimiter_Local(t *testing.T) {
	config := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1, Enabled: true}
	r := newLimitedEngine(t, ratelimit.NewLocalLimiter(config), config)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))
}

func TestRateLimiter_DisabledAndFailOpen(t *testing.T) {
	disabled := ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1, Enabled: false}
	r := newLimitedEngine(t, ratelimit.NewLocalLimiter(disabled), disabled)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r))
	}

	enabled := ratelimit.Config{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true}
	r = newLimitedEngine(t, erroringLimiter{}, enabled)
	assert.Equal(t, http.StatusOK, hit(r))
}
