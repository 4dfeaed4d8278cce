package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/gin/response"
	"hydration-user-service/internal/auth"
	usecase "hydration-user-service/internal/usecase/user"
	pkgerrors "hydration-user-service/pkg/errors"
	"hydration-user-service/pkg/logger"
)

const sessionUserKey = "session.user"

// SessionConfig describes the session cookie and the guard redirect targets.
type SessionConfig struct {
	CookieName string
	Secure     bool
	LoginPath  string
	HomePath   string
}

// Sessions resolves the signed session cookie and guards routes with it.
type Sessions struct {
	tokens *auth.TokenManager
	users  usecase.Usecase
	cfg    SessionConfig
	log    *zap.Logger
}

// NewSessions creates the session middleware set.
func NewSessions(tokens *auth.TokenManager, users usecase.Usecase, cfg SessionConfig, log *zap.Logger) *Sessions {
	return &Sessions{tokens: tokens, users: users, cfg: cfg, log: log}
}

// Config returns the session configuration.
func (s *Sessions) Config() SessionConfig {
	return s.cfg
}

// LoadSession attaches the signed-in user, if any, to the request.
// An invalid or expired cookie, or one naming a user that no longer
// exists, leaves the request anonymous and clears the cookie.
func (s *Sessions) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.cfg.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		log := logger.WithContext(c.Request.Context(), s.log)
		userID, err := s.tokens.Parse(token)
		if err != nil {
			log.Debug("discarding session cookie", zap.Error(err))
			s.ClearSession(c)
			c.Next()
			return
		}

		resp, err := s.users.GetUser(c.Request.Context(), usecase.GetUserRequest{ID: userID})
		if err != nil {
			var notFound *pkgerrors.NotFoundError
			if errors.As(err, &notFound) {
				s.ClearSession(c)
			} else {
				log.Warn("failed to load session user", zap.Int64("user_id", userID), zap.Error(err))
			}
			c.Next()
			return
		}

		user := resp.User
		SetSessionUser(c, &user)
		c.Next()
	}
}

// SetSessionUser marks the request as made by u.
func SetSessionUser(c *gin.Context, u *usecase.User) {
	c.Set(sessionUserKey, u)
	c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), u.ID))
}

// SessionUser returns the signed-in user loaded by LoadSession.
func SessionUser(c *gin.Context) (*usecase.User, bool) {
	v, ok := c.Get(sessionUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*usecase.User)
	return u, ok && u != nil
}

// RequireAuth stops anonymous requests. Pages are redirected to the login
// page with the current path as next, API calls get 401.
func (s *Sessions) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionUser(c); ok {
			c.Next()
			return
		}

		if isAPIRequest(c) {
			response.Error(c, pkgerrors.ErrNotAuthenticated)
			return
		}

		target := s.cfg.LoginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// RequireUnauth stops signed-in requests, sending pages to the home path.
func (s *Sessions) RequireUnauth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionUser(c); !ok {
			c.Next()
			return
		}

		if isAPIRequest(c) {
			response.Status(c, http.StatusForbidden, "FORBIDDEN", "already authenticated")
			return
		}

		c.Redirect(http.StatusSeeOther, s.cfg.HomePath)
		c.Abort()
	}
}

// SetSession issues a session token for userID and stores it in the cookie.
func (s *Sessions) SetSession(c *gin.Context, userID int64) error {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, token, int(s.tokens.TTL().Seconds()), "/", "", s.cfg.Secure, true)
	return nil
}

// ClearSession expires the session cookie.
func (s *Sessions) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, "", -1, "/", "", s.cfg.Secure, true)
}

func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
