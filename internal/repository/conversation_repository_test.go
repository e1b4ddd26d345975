package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/repository"
)

func seedConversation(t *testing.T, gdb *gorm.DB, userID string, c db.Companion) (*db.Match, *db.Conversation) {
	t.Helper()
	ctx := context.Background()
	m, created, err := repository.NewMatchRepository(gdb).Ensure(ctx, userID, c.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, created)
	conv, created, err := repository.NewConversationRepository(gdb).Ensure(ctx, m)
	require.NoError(t, err)
	require.True(t, created)
	return m, conv
}

func addMessage(t *testing.T, gdb *gorm.DB, convID string, author db.Author, content string, at time.Time) db.Message {
	t.Helper()
	m := db.NewMessage(convID, author, content, db.MessageText)
	m.CreatedAt = at
	require.NoError(t, repository.NewMessageRepository(gdb).Create(context.Background(), &m))
	return m
}

func TestMatchEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)
	c := seedCompanion(t, dbase, "Luna", 0.9)

	m1, created, err := repo.Ensure(ctx, "u1", c.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, created)

	m2, created, err := repo.Ensure(ctx, "u1", c.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m1.ID, m2.ID)

	require.NoError(t, repo.Deactivate(ctx, m1.ID))
	list, err := repo.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	m3, _, err := repo.Ensure(ctx, "u1", c.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, m3.IsActive)

	list, err = repo.ListActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Companion)
	assert.Equal(t, "Luna", list[0].Companion.Name)

	_, err = repo.FindForUser(ctx, "someone-else", m1.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestConversationEnsureReusesPair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	c := seedCompanion(t, dbase, "Luna", 0.9)
	m, conv := seedConversation(t, dbase, "u1", c)
	repo := repository.NewConversationRepository(dbase)

	again, created, err := repo.Ensure(ctx, m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	require.NoError(t, repo.SetStatus(ctx, conv.ID, db.ConversationArchived))
	revived, created, err := repo.Ensure(ctx, m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, db.ConversationActive, revived.Status)

	require.NoError(t, repo.SetStatus(ctx, conv.ID, db.ConversationBlocked))
	blocked, _, err := repo.Ensure(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, db.ConversationBlocked, blocked.Status)
}

func TestConversationListActive(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	luna := seedCompanion(t, dbase, "Luna", 0.9)
	alex := seedCompanion(t, dbase, "Alex", 0.8)
	maya := seedCompanion(t, dbase, "Maya", 0.7)

	_, convLuna := seedConversation(t, dbase, "u1", luna)
	_, convAlex := seedConversation(t, dbase, "u1", alex)
	_, convMaya := seedConversation(t, dbase, "u1", maya)
	repo := repository.NewConversationRepository(dbase)

	base := time.Now().UTC().Truncate(time.Millisecond)
	addMessage(t, dbase, convLuna.ID, db.HumanAuthor("u1"), "hi luna", base)
	addMessage(t, dbase, convLuna.ID, db.CompanionAuthor(luna.ID), "hey!", base.Add(time.Second))
	addMessage(t, dbase, convLuna.ID, db.CompanionAuthor(luna.ID), "how are you?", base.Add(2*time.Second))
	require.NoError(t, repo.TouchLastMessage(ctx, convLuna.ID, base.Add(2*time.Second)))

	addMessage(t, dbase, convAlex.ID, db.HumanAuthor("u1"), "yo", base.Add(5*time.Second))
	require.NoError(t, repo.TouchLastMessage(ctx, convAlex.ID, base.Add(5*time.Second)))

	require.NoError(t, repo.SetStatus(ctx, convMaya.ID, db.ConversationArchived))

	// another user's inbox is separate
	seedConversation(t, dbase, "u2", luna)

	list, err := repo.ListActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2, "archived conversation excluded")

	assert.Equal(t, convAlex.ID, list[0].Conversation.ID)
	assert.Equal(t, int64(0), list[0].UnreadCount, "own messages never count as unread")
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "yo", list[0].LastMessage.Content)

	assert.Equal(t, convLuna.ID, list[1].Conversation.ID)
	assert.Equal(t, int64(2), list[1].UnreadCount)
	assert.Equal(t, "how are you?", list[1].LastMessage.Content)
	require.NotNil(t, list[1].Conversation.Companion)
	assert.Equal(t, "Luna", list[1].Conversation.Companion.Name)

	empty, err := repo.ListActive(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConversationFindForUserEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	c := seedCompanion(t, dbase, "Luna", 0.9)
	_, conv := seedConversation(t, dbase, "owner", c)
	repo := repository.NewConversationRepository(dbase)

	got, err := repo.FindForUser(ctx, "owner", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.Companion.Name)

	_, err = repo.FindForUser(ctx, "intruder", conv.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestArchiveByMatch(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	c := seedCompanion(t, dbase, "Luna", 0.9)
	m, conv := seedConversation(t, dbase, "u1", c)
	repo := repository.NewConversationRepository(dbase)

	require.NoError(t, repo.ArchiveByMatch(ctx, m.ID))
	got, err := repo.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ConversationArchived, got.Status)
}
