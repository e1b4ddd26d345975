// Package testutil wires in-memory infrastructure for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/cache"
	"github.com/oggyb/galatea/internal/config"
	"github.com/oggyb/galatea/internal/db"
	applog "github.com/oggyb/galatea/internal/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// Each test name gets its own database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := db.Open(sqlite.Open(dsn), logger.Silent)
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// NewRedis starts a miniredis and returns a cache bound to it.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

// Config returns a configuration suitable for tests without reading the environment.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "galatea-test"
	cfg.Completion.HistoryWindow = 10
	cfg.RateLimit.Requests = 1000
	return cfg
}

// NewAppContext wires SQLite, miniredis and a discarding logger.
func NewAppContext(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()
	rc, mr := NewRedis(t)
	return app.New(Config(), NewDB(t), rc, applog.Discard()), mr
}

// SeedCompanion inserts an active companion.
func SeedCompanion(t *testing.T, gdb *gorm.DB, name string, score float64, interests ...string) db.Companion {
	t.Helper()
	c := db.Companion{
		Name:               name,
		Age:                26,
		Bio:                name + " bio",
		Personality:        "Warm",
		Interests:          db.StringList(interests),
		PersonalityTraits:  db.StringList{"Kind"},
		CommunicationStyle: "Friendly",
		FavoriteTopics:     db.StringList{},
		RelationshipGoals:  db.StringList{},
		CompatibilityScore: score,
		IsActive:           true,
	}
	if c.Interests == nil {
		c.Interests = db.StringList{}
	}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

// SeedUser inserts a user with profile, preferences and stats rows.
func SeedUser(t *testing.T, gdb *gorm.DB, email string) db.User {
	t.Helper()
	u := db.User{Email: email, PasswordHash: "x", Active: true}
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return db.CreateAccountRows(tx, u.ID, strings.SplitN(email, "@", 2)[0])
	}))
	return u
}

// Stats loads the user's counters row.
func Stats(gdb *gorm.DB, userID string) (*db.UserStats, error) {
	var s db.UserStats
	if err := gdb.Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
