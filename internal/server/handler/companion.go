package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListCompanions handles GET /api/v1/companions.
func (h *Handler) ListCompanions(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	list, err := h.companions.ListCompanions(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companions": list})
}

// RecommendedCompanions handles GET /api/v1/companions/recommended.
func (h *Handler) RecommendedCompanions(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	list, err := h.companions.Recommended(c.Request.Context(), s.UserID, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companions": list})
}

// GetCompanion handles GET /api/v1/companions/:id.
func (h *Handler) GetCompanion(c *gin.Context) {
	comp, err := h.companions.GetCompanion(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// CompanionLikes handles GET /api/v1/companions/:id/likes.
func (h *Handler) CompanionLikes(c *gin.Context) {
	ctx := c.Request.Context()
	comp, err := h.companions.GetCompanion(ctx, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	n, err := h.swipes.CompanionLikeCount(ctx, comp.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companion_id": comp.ID, "likes": n})
}
