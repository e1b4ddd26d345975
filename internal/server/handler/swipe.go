package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/service/swipe"
)

type swipeRequest struct {
	CompanionID string `json:"companion_id"`
	Decision    string `json:"decision"`
}

type batchRequest struct {
	Decisions map[string]string `json:"decisions"`
}

// RecordSwipe handles POST /api/v1/swipes.
// A repeated decision answers 409 with the result body.
func (h *Handler) RecordSwipe(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req swipeRequest
	if !bind(c, &req) {
		return
	}
	decision, known := swipe.ParseDecision(req.Decision)
	if !known {
		decision = db.Decision(req.Decision)
	}

	res, err := h.swipes.RecordSwipe(c.Request.Context(), s.UserID, req.CompanionID, decision)
	if err != nil {
		RespondError(c, err)
		return
	}
	if res.Error == swipe.AlreadySwipedMessage {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SubmitDecisions handles POST /api/v1/swipes/batch.
func (h *Handler) SubmitDecisions(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req batchRequest
	if !bind(c, &req) {
		return
	}
	items, err := h.swipes.SubmitDecisions(c.Request.Context(), s.UserID, req.Decisions)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// ListDecisions handles GET /api/v1/swipes.
func (h *Handler) ListDecisions(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	list, err := h.swipes.ListDecisions(c.Request.Context(), s.UserID, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": list})
}

// ListMatches handles GET /api/v1/matches.
func (h *Handler) ListMatches(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	matches, err := h.swipes.ListMatches(c.Request.Context(), s.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// DeactivateMatch handles DELETE /api/v1/matches/:id.
func (h *Handler) DeactivateMatch(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := h.swipes.DeactivateMatch(c.Request.Context(), s.UserID, c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SwipeStatus handles GET /api/v1/swipes/:companion_id.
func (h *Handler) SwipeStatus(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	swiped, err := h.swipes.HasSwiped(c.Request.Context(), s.UserID, c.Param("companion_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companion_id": c.Param("companion_id"), "swiped": swiped})
}
