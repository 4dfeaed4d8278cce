package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("All up", func(t *testing.T) {
		r := gin.New()
		h := NewHealthHandler(map[string]HealthCheck{"database": up, "redis": up}, zaptest.NewLogger(t))
		r.GET("/health", h.Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"up","redis":"up"}}`, w.Body.String())
	})

	t.Run("One down", func(t *testing.T) {
		r := gin.New()
		h := NewHealthHandler(map[string]HealthCheck{"database": up, "redis": down}, zaptest.NewLogger(t))
		r.GET("/health", h.Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"database":"up","redis":"down"}}`, w.Body.String())
	})
}
