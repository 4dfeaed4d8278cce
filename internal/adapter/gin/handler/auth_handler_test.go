package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hydration-user-service/internal/adapter/gin/middleware"
	"hydration-user-service/internal/auth"
	usecase "hydration-user-service/internal/usecase/user"
	pkgerrors "hydration-user-service/pkg/errors"
)

const testSecret = "test-secret-that-is-at-least-32-bytes!"

func setupAuthTest(t *testing.T) (*gin.Engine, *AuthHandler, *MockUserUsecase, *auth.TokenManager) {
	r, _, mockUsecase := setupTest(t)
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	sessions := middleware.NewSessions(tokens, mockUsecase, middleware.SessionConfig{
		CookieName: "session",
		LoginPath:  "/login",
		HomePath:   "/dashboard",
	}, zaptest.NewLogger(t))
	h := NewAuthHandler(mockUsecase, sessions, zaptest.NewLogger(t))

	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	return r, h, mockUsecase, tokens
}

func postLogin(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func TestAuthHandler_LoginForm(t *testing.T) {
	r, _, _, _ := setupAuthTest(t)

	t.Run("Keeps a safe next", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?next=%2Fusers", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="next" value="/users"`)
	})

	t.Run("Drops an external next", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?next=https%3A%2F%2Fevil.example", nil))

		assert.Contains(t, w.Body.String(), `name="next" value="/dashboard"`)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, _, mockUsecase, tokens := setupAuthTest(t)
		mockUsecase.On("Authenticate", mock.Anything, usecase.AuthenticateRequest{Email: "ada@example.com", Password: "correct-horse"}).
			Return(&usecase.AuthenticateResponse{User: sampleUsers[0]}, nil)

		w := postLogin(r, url.Values{"email": {"ada@example.com"}, "password": {"correct-horse"}, "next": {"/users"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/users", w.Header().Get("Location"))

		cookie := sessionCookie(w)
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		userID, err := tokens.Parse(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, int64(1), userID)
	})

	t.Run("Open redirect is refused", func(t *testing.T) {
		r, _, mockUsecase, _ := setupAuthTest(t)
		mockUsecase.On("Authenticate", mock.Anything, mock.Anything).
			Return(&usecase.AuthenticateResponse{User: sampleUsers[0]}, nil)

		w := postLogin(r, url.Values{"email": {"ada@example.com"}, "password": {"correct-horse"}, "next": {"//evil.example/"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("Invalid credentials", func(t *testing.T) {
		r, _, mockUsecase, _ := setupAuthTest(t)
		mockUsecase.On("Authenticate", mock.Anything, mock.Anything).Return(nil, pkgerrors.ErrInvalidCredentials)

		w := postLogin(r, url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid email or password.")
		assert.Contains(t, w.Body.String(), `value="ada@example.com"`)
		assert.Nil(t, sessionCookie(w))
	})

	t.Run("Validation error", func(t *testing.T) {
		r, _, mockUsecase, _ := setupAuthTest(t)
		mockUsecase.On("Authenticate", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewValidationError("", "Password is required"))

		w := postLogin(r, url.Values{"email": {"ada@example.com"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Internal error", func(t *testing.T) {
		r, _, mockUsecase, _ := setupAuthTest(t)
		mockUsecase.On("Authenticate", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewInternalError("failed to authenticate", errors.New("db down")))

		w := postLogin(r, url.Values{"email": {"ada@example.com"}, "password": {"x"}})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	r, _, _, _ := setupAuthTest(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}
