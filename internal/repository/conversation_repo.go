package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/galatea/internal/db"
)

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	Conversation db.Conversation
	LastMessage  *db.Message
	UnreadCount  int64
}

// ConversationRepository reads and writes Conversation rows.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// FindByPair returns the conversation for (user, companion) in any status, or nil.
func (r *ConversationRepository) FindByPair(ctx context.Context, userID, companionID string) (*db.Conversation, error) {
	var c db.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND companion_id = ?", userID, companionID).
		Limit(1).
		Find(&c).Error
	if err != nil || c.ID == "" {
		return nil, err
	}
	return &c, nil
}

// FindForUser loads a conversation owned by userID, with its companion.
// A conversation owned by someone else is reported as gorm.ErrRecordNotFound.
func (r *ConversationRepository) FindForUser(ctx context.Context, userID, conversationID string) (*db.Conversation, error) {
	var c db.Conversation
	err := r.db.WithContext(ctx).
		Preload("Companion").
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID loads a conversation without an ownership filter.
func (r *ConversationRepository) FindByID(ctx context.Context, conversationID string) (*db.Conversation, error) {
	var c db.Conversation
	if err := r.db.WithContext(ctx).First(&c, "id = ?", conversationID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindForUpdate loads a conversation and locks its row until the
// surrounding transaction ends. SQLite ignores the lock.
func (r *ConversationRepository) FindForUpdate(ctx context.Context, conversationID string) (*db.Conversation, error) {
	var c db.Conversation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", conversationID).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Ensure returns the pair's conversation, creating an active one bound to match when missing.
//
// Behavior:
//   - An archived conversation is reactivated and rebound to match.
//   - A blocked conversation stays blocked.
//   - created reports whether a new row was inserted.
func (r *ConversationRepository) Ensure(ctx context.Context, match *db.Match) (c *db.Conversation, created bool, err error) {
	c, err = r.FindByPair(ctx, match.UserID, match.CompanionID)
	if err != nil {
		return nil, false, err
	}
	if c != nil {
		if c.Status == db.ConversationArchived {
			err := r.db.WithContext(ctx).Model(c).Updates(map[string]any{
				"status":   db.ConversationActive,
				"match_id": match.ID,
			}).Error
			if err != nil {
				return nil, false, err
			}
			c.Status = db.ConversationActive
			c.MatchID = match.ID
		}
		return c, false, nil
	}

	c = &db.Conversation{
		UserID:      match.UserID,
		CompanionID: match.CompanionID,
		MatchID:     match.ID,
		Status:      db.ConversationActive,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(c).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c, err = r.FindByPair(ctx, match.UserID, match.CompanionID)
			return c, false, err
		}
		return nil, false, err
	}
	return c, true, nil
}

// ListActive returns the user's active conversations annotated for an inbox view.
//
// Behavior:
//   - Only status = active rows are returned.
//   - Ordered by last_message_at DESC, id DESC.
//   - UnreadCount counts companion-authored messages with is_read = false.
//   - LastMessage is the newest message by (created_at, id), nil for an empty thread.
//
// Example:
//
//	repo.ListActive(ctx, userID) // -> inbox rows, newest activity first
func (r *ConversationRepository) ListActive(ctx context.Context, userID string) ([]ConversationSummary, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Preload("Companion").
		Where("user_id = ? AND status = ?", userID, db.ConversationActive).
		Order("last_message_at DESC, id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}

	// unread counts in one grouped query
	var counts []struct {
		ConversationID string
		Unread         int64
	}
	err = r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND companion_id IS NOT NULL AND is_read = ?", ids, false).
		Group("conversation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	unread := make(map[string]int64, len(counts))
	for _, c := range counts {
		unread[c.ConversationID] = c.Unread
	}

	// newest message per conversation
	var lasts []db.Message
	err = r.db.WithContext(ctx).
		Table("messages m").
		Where("m.conversation_id IN ?", ids).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM messages m2
				WHERE m2.conversation_id = m.conversation_id
				  AND (m2.created_at > m.created_at
				       OR (m2.created_at = m.created_at AND m2.id > m.id))
			)`).
		Find(&lasts).Error
	if err != nil {
		return nil, err
	}
	last := make(map[string]*db.Message, len(lasts))
	for i := range lasts {
		last[lasts[i].ConversationID] = &lasts[i]
	}

	out := make([]ConversationSummary, len(convs))
	for i, c := range convs {
		out[i] = ConversationSummary{
			Conversation: c,
			LastMessage:  last[c.ID],
			UnreadCount:  unread[c.ID],
		}
	}
	return out, nil
}

// TouchLastMessage sets last_message_at to the given message time.
func (r *ConversationRepository) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}

// SetStatus changes a conversation's status.
func (r *ConversationRepository) SetStatus(ctx context.Context, conversationID string, status db.ConversationStatus) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", conversationID).
		Update("status", status).Error
}

// ArchiveByMatch archives every active conversation bound to the match.
func (r *ConversationRepository) ArchiveByMatch(ctx context.Context, matchID string) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("match_id = ? AND status = ?", matchID, db.ConversationActive).
		Update("status", db.ConversationArchived).Error
}
