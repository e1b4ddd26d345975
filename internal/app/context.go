package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/cache"
	"github.com/oggyb/galatea/internal/completion"
	"github.com/oggyb/galatea/internal/config"
	"github.com/oggyb/galatea/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	// Storage is nil when object storage is not configured.
	Storage storage.Store
	// Completion is nil when no completion endpoint is configured.
	Completion completion.Generator
	// Profiles is nil when companions cannot be drafted by a completion model.
	Profiles completion.ProfileGenerator
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
	}
}

// WithStorage sets the object store and returns the context for chaining.
func (a *AppContext) WithStorage(s storage.Store) *AppContext {
	a.Storage = s
	return a
}

// WithCompletion sets the reply generator and returns the context for chaining.
func (a *AppContext) WithCompletion(g completion.Generator) *AppContext {
	a.Completion = g
	return a
}

// WithProfileGenerator sets the companion profile drafter and returns the context for chaining.
func (a *AppContext) WithProfileGenerator(g completion.ProfileGenerator) *AppContext {
	a.Profiles = g
	return a
}

// HistoryWindow is the number of past turns sent with a reply request.
func (a *AppContext) HistoryWindow() int {
	if a.Config != nil && a.Config.Completion.HistoryWindow > 0 {
		return a.Config.Completion.HistoryWindow
	}
	return 10
}
