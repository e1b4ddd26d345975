package repository_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/repository"
)

// setupTestDB opens a private in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func seedCompanion(t *testing.T, gdb *gorm.DB, name string, score float64) db.Companion {
	t.Helper()
	c := db.Companion{
		Name:               name,
		Age:                27,
		Interests:          db.StringList{"Music"},
		PersonalityTraits:  db.StringList{"Warm"},
		FavoriteTopics:     db.StringList{},
		RelationshipGoals:  db.StringList{},
		CompatibilityScore: score,
		IsActive:           true,
	}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

func TestDecisionCreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)
	c := seedCompanion(t, dbase, "Luna", 0.9)

	err := repo.Create(ctx, &db.SwipeDecision{UserID: "u1", CompanionID: c.ID, Decision: db.DecisionLike})
	require.NoError(t, err)

	// second decision on the same pair, even a different one, is refused
	err = repo.Create(ctx, &db.SwipeDecision{UserID: "u1", CompanionID: c.ID, Decision: db.DecisionPass})
	assert.ErrorIs(t, err, repository.ErrDuplicateDecision)

	var rows []db.SwipeDecision
	require.NoError(t, dbase.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, db.DecisionLike, rows[0].Decision)
}

func TestDecisionUniqueIndexMapsToDuplicate(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	c := seedCompanion(t, dbase, "Luna", 0.9)

	// bypass the pre-check to hit the store constraint directly
	require.NoError(t, dbase.Create(&db.SwipeDecision{UserID: "u1", CompanionID: c.ID, Decision: db.DecisionLike}).Error)
	err := dbase.Create(&db.SwipeDecision{UserID: "u1", CompanionID: c.ID, Decision: db.DecisionLike}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	found, err := repository.NewDecisionRepository(dbase).Find(ctx, "u1", c.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestDecisionCountPositiveAndList(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)
	c := seedCompanion(t, dbase, "Luna", 0.9)
	other := seedCompanion(t, dbase, "Alex", 0.8)

	require.NoError(t, repo.Create(ctx, &db.SwipeDecision{UserID: "u1", CompanionID: c.ID, Decision: db.DecisionLike}))
	require.NoError(t, repo.Create(ctx, &db.SwipeDecision{UserID: "u2", CompanionID: c.ID, Decision: db.DecisionSuperLike}))
	require.NoError(t, repo.Create(ctx, &db.SwipeDecision{UserID: "u3", CompanionID: c.ID, Decision: db.DecisionPass}))
	require.NoError(t, repo.Create(ctx, &db.SwipeDecision{UserID: "u1", CompanionID: other.ID, Decision: db.DecisionPass}))

	n, err := repo.CountPositive(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := repo.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].CompanionID, "newest first")

	missing, err := repo.Find(ctx, "u9", c.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDecisionCreatePropagatesStoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `swipe_decisions`")).
		WillReturnError(errors.New("connection reset"))

	repo := repository.NewDecisionRepository(gdb)
	err = repo.Create(context.Background(), &db.SwipeDecision{UserID: "u1", CompanionID: "c1", Decision: db.DecisionLike})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicateDecision)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
