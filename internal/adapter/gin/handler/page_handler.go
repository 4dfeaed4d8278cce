package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/gin/middleware"
	"hydration-user-service/internal/adapter/rpc"
	"hydration-user-service/internal/querycache"
	usecase "hydration-user-service/internal/usecase/user"
	"hydration-user-service/internal/web"
	"hydration-user-service/pkg/logger"
)

const usersUnavailableMessage = "Users could not be loaded right now."

// PageHandler renders the server-side pages.
type PageHandler struct {
	router    *rpc.Router
	staleTime time.Duration
	log       *zap.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(router *rpc.Router, staleTime time.Duration, log *zap.Logger) *PageHandler {
	return &PageHandler{router: router, staleTime: staleTime, log: log}
}

func basePage(c *gin.Context, title string) gin.H {
	page := gin.H{"Title": title}
	if u, ok := middleware.SessionUser(c); ok {
		page["User"] = u
	}
	return page
}

// Index renders the landing page.
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", basePage(c, "Home"))
}

// Guide renders the data-fetching guide.
func (h *PageHandler) Guide(c *gin.Context) {
	page := basePage(c, "Guide")
	page["Guide"] = web.Guide()
	c.HTML(http.StatusOK, "guide.html", page)
}

// Users renders the list on the server and hands the prefetched state to the browser.
func (h *PageHandler) Users(c *gin.Context) {
	page, ok := h.prefetchedUsersPage(c, "Users")
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "users.html", page)
}

// UsersClient renders the client-only variant. Nothing is fetched here.
func (h *PageHandler) UsersClient(c *gin.Context) {
	page := basePage(c, "Users")
	page["QueryKey"] = rpc.UsersQueryKey.Hash()
	page["Procedure"] = rpc.ProcedureGetUsers
	c.HTML(http.StatusOK, "users_client.html", page)
}

// Dashboard renders the signed-in page. It is mounted behind RequireAuth.
func (h *PageHandler) Dashboard(c *gin.Context) {
	page, ok := h.prefetchedUsersPage(c, "Dashboard")
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", page)
}

// prefetchedUsersPage prefetches getUsers into a cache owned by this request
// and builds the page data around its dehydrated state.
func (h *PageHandler) prefetchedUsersPage(c *gin.Context, title string) (gin.H, bool) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx, h.log)

	qc := querycache.New(
		querycache.WithStaleTime(h.staleTime),
		querycache.WithLogger(log),
	)
	rpc.PrefetchUsers(ctx, h.router, qc)

	page := basePage(c, title)
	page["QueryKey"] = rpc.UsersQueryKey.Hash()
	page["Procedure"] = rpc.ProcedureGetUsers

	users, found, err := querycache.Decode[[]usecase.User](qc, rpc.UsersQueryKey)
	if err != nil {
		log.Error("failed to decode prefetched users", zap.Error(err))
	}
	if !found || err != nil {
		page["Error"] = usersUnavailableMessage
	}
	page["Users"] = users

	state, err := web.StateScript(qc)
	if err != nil {
		log.Error("failed to embed query state", zap.Error(err))
		h.renderError(c, http.StatusInternalServerError, "Something went wrong")
		return nil, false
	}
	page["State"] = state
	return page, true
}

func (h *PageHandler) renderError(c *gin.Context, status int, message string) {
	page := basePage(c, http.StatusText(status))
	page["Error"] = message
	c.HTML(status, "error.html", page)
	c.Abort()
}

// NotFound renders the 404 page for unknown routes.
func (h *PageHandler) NotFound(c *gin.Context) {
	h.renderError(c, http.StatusNotFound, "The page you are looking for does not exist.")
}
