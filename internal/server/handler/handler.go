// Package handler maps the HTTP API onto the domain services.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/auth"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/logger"
	"github.com/oggyb/galatea/internal/service/companion"
	"github.com/oggyb/galatea/internal/service/conversation"
	"github.com/oggyb/galatea/internal/service/health"
	"github.com/oggyb/galatea/internal/service/profile"
	"github.com/oggyb/galatea/internal/service/swipe"
)

// Handler holds one instance of every service behind the API.
type Handler struct {
	appCtx        *app.AppContext
	auth          *auth.Service
	swipes        *swipe.Service
	companions    *companion.Service
	conversations *conversation.Service
	profiles      *profile.Service
	checker       *health.Checker
}

func New(appCtx *app.AppContext) *Handler {
	return &Handler{
		appCtx:        appCtx,
		auth:          auth.NewService(appCtx),
		swipes:        swipe.NewService(appCtx),
		companions:    companion.NewService(appCtx),
		conversations: conversation.NewService(appCtx),
		profiles:      profile.NewService(appCtx),
		checker:       health.NewChecker(appCtx),
	}
}

// Auth exposes the session service for the authentication middleware.
func (h *Handler) Auth() *auth.Service { return h.auth }

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondError writes err as {"error", "code"} with the matching status.
// Internal causes are logged, never sent.
func RespondError(c *gin.Context, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= 500 {
		logger.FromContext(c.Request.Context(), logger.L()).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"err", err,
		)
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		Error: svcErr.PublicMessage(err),
		Code:  string(svcErr.KindOf(err)),
	})
}

// session returns the authenticated session or writes 401.
func session(c *gin.Context) (auth.Session, bool) {
	s, ok := auth.FromContext(c.Request.Context())
	if !ok {
		RespondError(c, svcErr.Unauthenticated("not signed in"))
	}
	return s, ok
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, svcErr.InvalidArgument("invalid request body"))
		return false
	}
	return true
}

// queryInt reads an optional integer query parameter; 0 when absent.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		RespondError(c, svcErr.InvalidArgument(name+" must be a non-negative integer"))
		return 0, false
	}
	return n, true
}
