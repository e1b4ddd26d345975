package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/galatea/internal/db"
)

type messageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

type replyRequest struct {
	Message string `json:"message"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// ListConversations handles GET /api/v1/conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	list, err := h.conversations.ListConversations(c.Request.Context(), s.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// GetConversation handles GET /api/v1/conversations/:id.
func (h *Handler) GetConversation(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	detail, err := h.conversations.GetConversation(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListMessages handles GET /api/v1/conversations/:id/messages?page_token=&limit=.
func (h *Handler) ListMessages(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}
	page, err := h.conversations.ListMessages(c.Request.Context(), s.UserID, c.Param("id"), token, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SendMessage handles POST /api/v1/conversations/:id/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req messageRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.conversations.SendUserMessage(c.Request.Context(), s.UserID, c.Param("id"), req.Content, db.MessageType(req.MessageType))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// GenerateReply handles POST /api/v1/conversations/:id/reply.
func (h *Handler) GenerateReply(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req replyRequest
	if !bind(c, &req) {
		return
	}
	reply, err := h.conversations.GenerateReply(c.Request.Context(), s.UserID, c.Param("id"), req.Message)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// MarkRead handles POST /api/v1/conversations/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	n, err := h.conversations.MarkReadForUser(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// UnreadCount handles GET /api/v1/conversations/:id/unread.
func (h *Handler) UnreadCount(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	n, err := h.conversations.UnreadCount(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

// UpdateConversation handles PATCH /api/v1/conversations/:id.
func (h *Handler) UpdateConversation(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.conversations.UpdateStatus(c.Request.Context(), s.UserID, c.Param("id"), db.ConversationStatus(req.Status))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
