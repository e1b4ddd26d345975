package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness handles GET /healthz.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz; 503 when the database or Redis is unreachable.
func (h *Handler) Readiness(c *gin.Context) {
	report, ok := h.checker.Check(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": report})
}
