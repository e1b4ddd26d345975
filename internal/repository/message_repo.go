package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/utils/pagination"
)

// MessageRepository reads and writes Message rows.
// Messages are immutable apart from is_read.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create inserts m; CreatedAt is filled from the DB clock when zero.
func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListByConversation returns the full history in chronological order.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]db.Message, error) {
	var out []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// Page returns one page of history walking backwards from the newest message.
//
// Behavior:
//   - The page itself is returned in chronological order.
//   - nextToken points at older messages; nil when the start of the thread is reached.
//   - Keyset on (created_at, id), so inserts never shift pages.
//
// Example:
//
//	msgs, next, _ := repo.Page(ctx, convID, nil, 50) // latest 50
//	older, _, _ := repo.Page(ctx, convID, next, 50)
func (r *MessageRepository) Page(
	ctx context.Context,
	conversationID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		msgs = msgs[:limit]
		last := msgs[limit-1]
		token, _ := pagination.Encode(pagination.At(last.ID, last.CreatedAt))
		nextToken = &token
	}

	reverse(msgs)
	return msgs, nextToken, nil
}

// Recent returns the last n messages in chronological order.
func (r *MessageRepository) Recent(ctx context.Context, conversationID string, n int) ([]db.Message, error) {
	msgs, _, err := r.Page(ctx, conversationID, nil, n)
	return msgs, err
}

// MarkCompanionMessagesRead sets is_read on companion-authored messages only.
// Rows written by the human are never touched.
func (r *MessageRepository) MarkCompanionMessagesRead(ctx context.Context, conversationID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND companion_id IS NOT NULL AND is_read = ?", conversationID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread counts unread companion messages in one conversation.
func (r *MessageRepository) CountUnread(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND companion_id IS NOT NULL AND is_read = ?", conversationID, false).
		Count(&n).Error
	return n, err
}

func reverse(msgs []db.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
