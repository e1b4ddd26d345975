package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/metrics"
	"github.com/oggyb/galatea/internal/server/handler"
)

// NewRouter builds the gin engine with the middleware chain and every API route.
func NewRouter(appCtx *app.AppContext) *gin.Engine {
	cfg := appCtx.Config
	if cfg.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.New(appCtx)
	log := appCtx.Logger

	r := gin.New()
	r.Use(
		RequestID(log),
		AccessLog(log),
		Recovery(log),
		cors.New(corsConfig(cfg.HTTP.AllowedOrigins)),
		metrics.Middleware(),
	)

	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	window := cfg.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	api := r.Group("/api/v1", RateLimit(appCtx.RedisCache, cfg.RateLimit.Requests, window, log))

	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/signin", h.SignIn)

	authed := api.Group("", RequireSession(h.Auth()))
	{
		authed.POST("/auth/signout", h.SignOut)
		authed.GET("/auth/me", h.Me)

		authed.POST("/swipes", h.RecordSwipe)
		authed.POST("/swipes/batch", h.SubmitDecisions)
		authed.GET("/swipes", h.ListDecisions)
		authed.GET("/swipes/:companion_id", h.SwipeStatus)
		authed.GET("/matches", h.ListMatches)
		authed.DELETE("/matches/:id", h.DeactivateMatch)

		authed.GET("/companions", h.ListCompanions)
		authed.GET("/companions/recommended", h.RecommendedCompanions)
		authed.GET("/companions/:id", h.GetCompanion)
		authed.GET("/companions/:id/likes", h.CompanionLikes)

		authed.GET("/conversations", h.ListConversations)
		authed.GET("/conversations/:id", h.GetConversation)
		authed.PATCH("/conversations/:id", h.UpdateConversation)
		authed.GET("/conversations/:id/messages", h.ListMessages)
		authed.GET("/conversations/:id/unread", h.UnreadCount)
		authed.POST("/conversations/:id/messages", h.SendMessage)
		authed.POST("/conversations/:id/reply", h.GenerateReply)
		authed.POST("/conversations/:id/read", h.MarkRead)

		authed.GET("/profile", h.GetProfile)
		authed.PATCH("/profile", h.UpdateProfile)
		authed.GET("/profile/preferences", h.GetPreferences)
		authed.PATCH("/profile/preferences", h.UpdatePreferences)
		authed.GET("/profile/stats", h.GetStats)
		authed.POST("/profile/avatar", h.UploadAvatar)
		authed.DELETE("/profile/avatar", h.RemoveAvatar)
	}

	admin := authed.Group("/admin", RequireAdmin())
	{
		admin.POST("/companions", h.CreateCompanion)
		admin.POST("/companions/generate", h.GenerateCompanion)
		admin.PATCH("/companions/:id", h.UpdateCompanion)
		admin.DELETE("/companions/:id", h.DeactivateCompanion)
		admin.POST("/companions/:id/image", h.UploadCompanionImage)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.ErrorBody{Error: "route not found", Code: "NOT_FOUND"})
	})
	return r
}

// NewHTTPServer wraps the router with the configured address and timeouts.
func NewHTTPServer(appCtx *app.AppContext) *http.Server {
	cfg := appCtx.Config
	return &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           NewRouter(appCtx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	c.ExposeHeaders = []string{RequestIDHeader, "X-RateLimit-Remaining"}
	c.MaxAge = 12 * time.Hour
	return c
}
