package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oggyb/galatea/internal/auth"
	"github.com/oggyb/galatea/internal/cache"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/logger"
	"github.com/oggyb/galatea/internal/metrics"
	"github.com/oggyb/galatea/internal/server/handler"
)

const (
	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID = "request_id"
	ctxKeyUserID    = "user_id"
)

// RequestID reuses a caller-supplied id or mints one, and puts a logger
// carrying it into the request context.
func RequestID(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(RequestIDHeader, id)

		ctx := logger.IntoContext(c.Request.Context(), log.With("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog writes one line per request once the handler chain returns.
func AccessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxKeyRequestID),
		}
		if uid := c.GetString(ctxKeyUserID); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("http request", attrs...)
		case c.Writer.Status() >= 400:
			log.Warn("http request", attrs...)
		default:
			log.Info("http request", attrs...)
		}
	}
}

// Recovery turns a panic into a 500 with the usual error body.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxKeyRequestID),
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, handler.ErrorBody{
			Error: "internal error",
			Code:  string(svcErr.KindInternal),
		})
	})
}

// RateLimit allows limit requests per window per client IP.
// Redis failures let the request through.
func RateLimit(rc *cache.RedisCache, limit int, window time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil || limit <= 0 {
			c.Next()
			return
		}
		allowed, remaining, err := rc.Allow(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			metrics.CacheErrors.WithLabelValues("ratelimit").Inc()
			log.Warn("rate limiter unavailable", "err", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, handler.ErrorBody{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// RequireSession authenticates the bearer token and stores the session in the request context.
func RequireSession(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			handler.RespondError(c, svcErr.Unauthenticated("missing bearer token"))
			return
		}
		s, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.Set(ctxKeyUserID, s.UserID)
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

// RequireAdmin lets through sessions whose token carries the admin role.
// It must run after RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := auth.FromContext(c.Request.Context())
		if !ok {
			handler.RespondError(c, svcErr.Unauthenticated("not signed in"))
			return
		}
		if !s.IsAdmin() {
			handler.RespondError(c, svcErr.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}
