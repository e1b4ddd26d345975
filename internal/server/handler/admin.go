package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/service/companion"
)

type generateCompanionRequest struct {
	Description string `json:"description"`
}

// CreateCompanion handles POST /api/v1/admin/companions.
func (h *Handler) CreateCompanion(c *gin.Context) {
	var in companion.Input
	if !bind(c, &in) {
		return
	}
	comp, err := h.companions.CreateCompanion(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comp)
}

// GenerateCompanion handles POST /api/v1/admin/companions/generate.
// An empty body drafts a companion from a random description.
func (h *Handler) GenerateCompanion(c *gin.Context) {
	var req generateCompanionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, svcErr.InvalidArgument("invalid request body"))
		return
	}
	comp, err := h.companions.GenerateCompanion(c.Request.Context(), req.Description)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comp)
}

// UpdateCompanion handles PATCH /api/v1/admin/companions/:id.
func (h *Handler) UpdateCompanion(c *gin.Context) {
	var in companion.Input
	if !bind(c, &in) {
		return
	}
	comp, err := h.companions.UpdateCompanion(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// DeactivateCompanion handles DELETE /api/v1/admin/companions/:id.
func (h *Handler) DeactivateCompanion(c *gin.Context) {
	if err := h.companions.DeactivateCompanion(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadCompanionImage handles POST /api/v1/admin/companions/:id/image.
func (h *Handler) UploadCompanionImage(c *gin.Context) {
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

	url, err := h.companions.UploadCompanionImage(c.Request.Context(), c.Param("id"), f, fh.Size)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}
