package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/service/profile"
)

// GetProfile handles GET /api/v1/profile.
func (h *Handler) GetProfile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	p, err := h.profiles.GetProfile(c.Request.Context(), s.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile handles PATCH /api/v1/profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var in profile.ProfileInput
	if !bind(c, &in) {
		return
	}
	p, err := h.profiles.UpdateProfile(c.Request.Context(), s.UserID, in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetPreferences handles GET /api/v1/profile/preferences.
func (h *Handler) GetPreferences(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	p, err := h.profiles.GetPreferences(c.Request.Context(), s.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePreferences handles PATCH /api/v1/profile/preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var in profile.PreferencesInput
	if !bind(c, &in) {
		return
	}
	p, err := h.profiles.UpdatePreferences(c.Request.Context(), s.UserID, in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetStats handles GET /api/v1/profile/stats.
func (h *Handler) GetStats(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	st, err := h.profiles.GetStats(c.Request.Context(), s.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UploadAvatar handles POST /api/v1/profile/avatar with a multipart "file" field.
func (h *Handler) UploadAvatar(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, svcErr.InvalidArgument("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondError(c, svcErr.InvalidArgument("unreadable upload"))
		return
	}
	defer f.Close()

	url, err := h.profiles.UploadAvatar(c.Request.Context(), s.UserID, f, fh.Size)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// RemoveAvatar handles DELETE /api/v1/profile/avatar.
func (h *Handler) RemoveAvatar(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := h.profiles.RemoveAvatar(c.Request.Context(), s.UserID); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
