package db_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/galatea/internal/db"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := db.Open(sqlite.Open(dsn), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func TestDialector(t *testing.T) {
	for _, name := range []string{"", "mysql", "postgres", "sqlite"} {
		d, err := db.Dialector(name, "x")
		require.NoError(t, err, name)
		assert.NotNil(t, d)
	}
	_, err := db.Dialector("oracle", "x")
	assert.Error(t, err)
}

func TestSeedTestData(t *testing.T) {
	gdb := openTestDB(t)

	require.NoError(t, db.SeedTestData(gdb, 5))
	// idempotent: a second run wipes and reseeds
	require.NoError(t, db.SeedTestData(gdb, 2))

	var companions int64
	require.NoError(t, gdb.Model(&db.Companion{}).Count(&companions).Error)
	assert.Equal(t, int64(len(db.DefaultCompanions())+2), companions)

	var user db.User
	require.NoError(t, gdb.Where("email = ?", db.DemoEmail).First(&user).Error)

	var profile db.UserProfile
	require.NoError(t, gdb.First(&profile, "id = ?", user.ID).Error)
	assert.Equal(t, "Demo", profile.DisplayName)

	var stats db.UserStats
	require.NoError(t, gdb.Where("user_id = ?", user.ID).First(&stats).Error)
	assert.Zero(t, stats.TotalSwipes)
}

func TestFakeCompanionsDeterministic(t *testing.T) {
	a := db.FakeCompanions(42, 3)
	b := db.FakeCompanions(42, 3)
	require.Len(t, a, 3)
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.True(t, a[i].IsActive)
		assert.GreaterOrEqual(t, a[i].Age, 21)
	}
}

func TestMessageAuthorEncoding(t *testing.T) {
	human := db.NewMessage("c1", db.HumanAuthor("u1"), "hi", db.MessageText)
	require.NotNil(t, human.SenderID)
	assert.Nil(t, human.CompanionID)
	assert.Equal(t, db.HumanAuthor("u1"), human.Author())

	bot := db.NewMessage("c1", db.CompanionAuthor("p1"), "hello", db.MessageText)
	assert.Nil(t, bot.SenderID)
	require.NotNil(t, bot.CompanionID)
	assert.Equal(t, db.CompanionAuthor("p1"), bot.Author())

	assert.False(t, db.Author{Kind: "robot", ID: "x"}.Valid())
	assert.False(t, db.HumanAuthor("").Valid())
}

func TestDecisionHelpers(t *testing.T) {
	assert.True(t, db.DecisionSuperLike.Positive())
	assert.False(t, db.DecisionPass.Positive())
	assert.False(t, db.Decision("maybe").Valid())
}

func TestIDsAreTimeOrdered(t *testing.T) {
	gdb := openTestDB(t)
	var ids []string
	for i := 0; i < 5; i++ {
		c := db.Companion{Name: fmt.Sprintf("c%d", i), Age: 30, IsActive: true}
		require.NoError(t, gdb.Create(&c).Error)
		ids = append(ids, c.ID)
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}
