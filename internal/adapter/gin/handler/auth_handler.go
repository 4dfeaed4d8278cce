package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/gin/middleware"
	usecase "hydration-user-service/internal/usecase/user"
	pkgerrors "hydration-user-service/pkg/errors"
	"hydration-user-service/pkg/logger"
	"hydration-user-service/pkg/security"
)

// AuthHandler handles sign in and sign out.
type AuthHandler struct {
	users    usecase.Usecase
	sessions *middleware.Sessions
	log      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users usecase.Usecase, sessions *middleware.Sessions, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, log: log}
}

// LoginForm renders the sign-in form. It is mounted behind RequireUnauth.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	home := h.sessions.Config().HomePath
	h.renderLogin(c, http.StatusOK, security.SafeRedirectPath(c.Query("next"), home), "", "")
}

// Login checks the submitted credentials and starts a session.
func (h *AuthHandler) Login(c *gin.Context) {
	home := h.sessions.Config().HomePath
	next := security.SafeRedirectPath(c.PostForm("next"), home)
	email := c.PostForm("email")
	log := logger.WithContext(c.Request.Context(), h.log)

	resp, err := h.users.Authenticate(c.Request.Context(), usecase.AuthenticateRequest{
		Email:    email,
		Password: c.PostForm("password"),
	})
	if err != nil {
		var (
			validationErr *pkgerrors.ValidationError
			unauthErr     *pkgerrors.UnauthenticatedError
		)
		switch {
		case errors.As(err, &validationErr):
			h.renderLogin(c, http.StatusBadRequest, next, email, "Enter your email and password.")
		case errors.As(err, &unauthErr):
			h.renderLogin(c, http.StatusUnauthorized, next, email, "Invalid email or password.")
		default:
			log.Error("login failed", zap.Error(err))
			h.renderLogin(c, http.StatusInternalServerError, next, email, "Sign in is unavailable right now.")
		}
		return
	}

	if err := h.sessions.SetSession(c, resp.User.ID); err != nil {
		log.Error("failed to start session", zap.Int64("user_id", resp.User.ID), zap.Error(err))
		h.renderLogin(c, http.StatusInternalServerError, next, email, "Sign in is unavailable right now.")
		return
	}

	log.Info("user signed in", zap.Int64("user_id", resp.User.ID))
	c.Redirect(http.StatusSeeOther, next)
}

// Logout ends the session and returns to the landing page.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.ClearSession(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, next, email, message string) {
	page := basePage(c, "Sign in")
	page["Next"] = next
	page["Email"] = email
	if message != "" {
		page["Error"] = message
	}
	c.HTML(status, "login.html", page)
}
