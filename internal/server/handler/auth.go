package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/galatea/internal/auth"
	"github.com/oggyb/galatea/internal/db"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	User    sessionUser `json:"user"`
	Session sessionBody `json:"session"`
}

type sessionUser struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Role  db.Role `json:"role"`
}

type sessionBody struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newSessionResponse(s auth.Session, token string) sessionResponse {
	return sessionResponse{
		User:    sessionUser{ID: s.UserID, Email: s.Email, Role: s.Role},
		Session: sessionBody{AccessToken: token, TokenType: "bearer", ExpiresAt: s.ExpiresAt},
	}
}

// SignUp handles POST /api/v1/auth/signup.
func (h *Handler) SignUp(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	s, token, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(s, token))
}

// SignIn handles POST /api/v1/auth/signin.
func (h *Handler) SignIn(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	s, token, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(s, token))
}

// SignOut handles POST /api/v1/auth/signout.
func (h *Handler) SignOut(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), s); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.profiles.TouchLastActive(ctx, user.ID); err != nil {
		h.appCtx.Logger.Warn("failed to touch last_active_at", "user_id", user.ID, "err", err)
	}
	c.JSON(http.StatusOK, user)
}
