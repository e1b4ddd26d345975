package conversation

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/completion"
	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/metrics"
	"github.com/oggyb/galatea/internal/repository"
	"github.com/oggyb/galatea/internal/utils/pagination"
	"github.com/oggyb/galatea/internal/utils/text"
)

const (
	// MaxContentLength is the longest message accepted, in characters.
	MaxContentLength = 10000

	defaultPageSize = 50
	maxPageSize     = 200
)

// Service implements conversations, messages and companion replies.
type Service struct {
	appCtx        *app.AppContext
	convRepo      *repository.ConversationRepository
	msgRepo       *repository.MessageRepository
	matchRepo     *repository.MatchRepository
	userRepo      *repository.UserRepository
	companionRepo *repository.CompanionRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		convRepo:      repository.NewConversationRepository(appCtx.DB),
		msgRepo:       repository.NewMessageRepository(appCtx.DB),
		matchRepo:     repository.NewMatchRepository(appCtx.DB),
		userRepo:      repository.NewUserRepository(appCtx.DB),
		companionRepo: repository.NewCompanionRepository(appCtx.DB),
	}
}

// ListConversations returns the user's active conversations, most recent activity first.
// Each row carries the companion card, the newest message and the unread count.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]Summary, error) {
	s.appCtx.Logger.Debug("ListConversations called", "user_id", userID)

	rows, err := s.convRepo.ListActive(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("ListConversations failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		out[i] = toSummary(r)
	}
	return out, nil
}

// GetConversation returns an owned conversation with the full history, oldest first.
//
// Behavior:
//   - Someone else's conversation is NotFound, never returned.
//   - After loading, companion messages are marked read; the returned
//     messages still show their state before this call.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*Detail, error) {
	s.appCtx.Logger.Debug("GetConversation called", "user_id", userID, "conversation_id", conversationID)

	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		s.appCtx.Logger.Error("GetConversation failed", "conversation_id", conv.ID, "err", err)
		return nil, svcErr.Map(err)
	}
	if _, err := s.msgRepo.MarkCompanionMessagesRead(ctx, conv.ID); err != nil {
		s.appCtx.Logger.Warn("failed to mark messages read", "conversation_id", conv.ID, "err", err)
	}

	return &Detail{
		ID:            conv.ID,
		MatchID:       conv.MatchID,
		Status:        conv.Status,
		LastMessageAt: conv.LastMessageAt,
		CreatedAt:     conv.CreatedAt,
		Companion:     conv.Companion,
		Messages:      toMessages(msgs),
	}, nil
}

// ListMessages pages through an owned conversation from the newest message backwards.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID string, pageToken *string, limit int) (*Page, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	limit = pagination.ClampLimit(limit, defaultPageSize, maxPageSize)

	msgs, next, err := s.msgRepo.Page(ctx, conv.ID, pageToken, limit)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.InvalidArgument("invalid page token")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &Page{Messages: toMessages(msgs), NextPageToken: next}, nil
}

// AppendMessage stores one message and moves the conversation's last_message_at to it.
//
// Behavior:
//   - author must be a human (the conversation's user) or a companion
//     (the conversation's companion); exactly one storage column is set.
//   - Content is stripped of HTML, must be non-empty and at most 10 000 characters.
//   - An empty messageType means text.
//   - The conversation must be active; archived or blocked ones return Conflict.
//   - Human messages count towards the user's total_messages_sent.
func (s *Service) AppendMessage(ctx context.Context, conversationID string, author db.Author, content string, messageType db.MessageType) (*Message, error) {
	s.appCtx.Logger.Debug("AppendMessage called", "conversation_id", conversationID, "author_kind", author.Kind)

	content, messageType, err := validateMessage(author, content, messageType)
	if err != nil {
		return nil, err
	}

	var out db.Message
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := repository.NewConversationRepository(tx).FindForUpdate(ctx, conversationID)
		if err != nil {
			return err
		}
		out, err = appendTx(ctx, tx, conv, author, content, messageType)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("conversation not found")
	}
	if err != nil {
		if svcErr.KindOf(err) == svcErr.KindInternal {
			s.appCtx.Logger.Error("AppendMessage failed", "conversation_id", conversationID, "err", err)
		}
		return nil, svcErr.Map(err)
	}

	metrics.Messages.WithLabelValues(string(author.Kind)).Inc()
	m := toMessage(out)
	return &m, nil
}

// SendUserMessage appends a message written by the signed-in user.
// The conversation must be owned by the user and active.
func (s *Service) SendUserMessage(ctx context.Context, userID, conversationID, content string, messageType db.MessageType) (*Message, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != db.ConversationActive {
		return nil, svcErr.Conflict("conversation is not active")
	}
	return s.AppendMessage(ctx, conv.ID, db.HumanAuthor(userID), content, messageType)
}

// MarkRead flags every companion-authored message of the conversation as read.
// Messages written by the user are never touched.
func (s *Service) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	n, err := s.msgRepo.MarkCompanionMessagesRead(ctx, conversationID)
	if err != nil {
		s.appCtx.Logger.Error("MarkRead failed", "conversation_id", conversationID, "err", err)
		return 0, svcErr.Map(err)
	}
	return n, nil
}

// MarkReadForUser is MarkRead behind an ownership check.
func (s *Service) MarkReadForUser(ctx context.Context, userID, conversationID string) (int64, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	return s.MarkRead(ctx, conv.ID)
}

// UnreadCount returns how many companion messages of an owned conversation are unread.
func (s *Service) UnreadCount(ctx context.Context, userID, conversationID string) (int64, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	n, err := s.msgRepo.CountUnread(ctx, conv.ID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	return n, nil
}

// UpdateStatus archives, blocks or reactivates an owned conversation.
// Reactivation needs the underlying match to be active.
func (s *Service) UpdateStatus(ctx context.Context, userID, conversationID string, status db.ConversationStatus) (*Summary, error) {
	if !status.Valid() {
		return nil, svcErr.InvalidArgument("status must be one of active, archived, blocked")
	}
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if status == db.ConversationActive && conv.Status != db.ConversationActive {
		m, err := s.matchRepo.FindForUser(ctx, userID, conv.MatchID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Map(err)
		}
		if m == nil || !m.IsActive {
			return nil, svcErr.Conflict("match is no longer active")
		}
	}

	if conv.Status != status {
		if err := s.convRepo.SetStatus(ctx, conv.ID, status); err != nil {
			return nil, svcErr.Map(err)
		}
		conv.Status = status
	}
	out := toSummary(repository.ConversationSummary{Conversation: *conv})
	return &out, nil
}

// GenerateReply asks the completion service for the companion's answer to
// userMessage and persists the exchange.
//
// Behavior:
//   - The conversation must be owned by the user and active.
//   - The prompt carries the companion persona, the user's profile and the
//     last HistoryWindow stored turns.
//   - Only after a successful completion are the user message and the reply
//     written, together with last_message_at, in one transaction.
//   - The status is checked again inside that transaction, so a conversation
//     archived while the completion ran gets Conflict and no rows.
//   - Upstream failures return an Upstream error and persist nothing.
func (s *Service) GenerateReply(ctx context.Context, userID, conversationID, userMessage string) (*Reply, error) {
	s.appCtx.Logger.Debug("GenerateReply called", "user_id", userID, "conversation_id", conversationID)

	if s.appCtx.Completion == nil {
		return nil, svcErr.Upstream("completion service unavailable", nil)
	}
	content, _, err := validateMessage(db.HumanAuthor(userID), userMessage, db.MessageText)
	if err != nil {
		return nil, err
	}

	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != db.ConversationActive {
		return nil, svcErr.Conflict("conversation is not active")
	}
	comp := conv.Companion
	if comp == nil {
		if comp, err = s.companionRepo.FindByID(ctx, conv.CompanionID); err != nil {
			return nil, svcErr.Map(err)
		}
	}

	profile, err := s.userRepo.Profile(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}
	recent, err := s.msgRepo.Recent(ctx, conv.ID, s.appCtx.HistoryWindow())
	if err != nil {
		return nil, svcErr.Map(err)
	}

	raw, err := s.appCtx.Completion.GenerateReply(ctx,
		completion.PersonaFromCompanion(comp),
		completion.UserContextFromProfile(profile),
		content,
		completion.HistoryFromMessages(recent),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, svcErr.Map(ctxErr)
		}
		s.appCtx.Logger.Error("completion failed", "conversation_id", conv.ID, "err", err)
		return nil, svcErr.Upstream("failed to generate reply", err)
	}
	replyText := truncate(strings.TrimSpace(raw), MaxContentLength)
	if replyText == "" {
		return nil, svcErr.Upstream("failed to generate reply", completion.ErrEmptyCompletion)
	}

	var userRow, replyRow db.Message
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := repository.NewConversationRepository(tx).FindForUpdate(ctx, conv.ID)
		if err != nil {
			return err
		}
		if userRow, err = appendTx(ctx, tx, current, db.HumanAuthor(userID), content, db.MessageText); err != nil {
			return err
		}
		replyRow, err = appendTx(ctx, tx, current, db.CompanionAuthor(current.CompanionID), replyText, db.MessageText)
		return err
	})
	if err != nil {
		if svcErr.KindOf(err) == svcErr.KindInternal {
			s.appCtx.Logger.Error("failed to persist reply", "conversation_id", conv.ID, "err", err)
		}
		return nil, svcErr.Map(err)
	}
	metrics.Messages.WithLabelValues(string(db.AuthorHuman)).Inc()
	metrics.Messages.WithLabelValues(string(db.AuthorCompanion)).Inc()

	return &Reply{
		ConversationID: conv.ID,
		Response:       replyRow.Content,
		UserMessage:    toMessage(userRow),
		Reply:          toMessage(replyRow),
	}, nil
}

// owned loads a conversation of userID; anything else is NotFound.
func (s *Service) owned(ctx context.Context, userID, conversationID string) (*db.Conversation, error) {
	if userID == "" {
		return nil, svcErr.Unauthenticated("user id is required")
	}
	conv, err := s.convRepo.FindForUser(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("conversation not found")
		}
		return nil, svcErr.Map(err)
	}
	return conv, nil
}

// appendTx writes one message inside tx and bumps the conversation and stats.
// conv must have been read inside tx.
func appendTx(ctx context.Context, tx *gorm.DB, conv *db.Conversation, author db.Author, content string, messageType db.MessageType) (db.Message, error) {
	if conv.Status != db.ConversationActive {
		return db.Message{}, svcErr.Conflict("conversation is not active")
	}
	switch author.Kind {
	case db.AuthorHuman:
		if author.ID != conv.UserID {
			return db.Message{}, svcErr.InvalidArgument("author is not part of this conversation")
		}
	case db.AuthorCompanion:
		if author.ID != conv.CompanionID {
			return db.Message{}, svcErr.InvalidArgument("author is not part of this conversation")
		}
	}

	m := db.NewMessage(conv.ID, author, content, messageType)
	if err := repository.NewMessageRepository(tx).Create(ctx, &m); err != nil {
		return db.Message{}, err
	}
	if err := repository.NewConversationRepository(tx).TouchLastMessage(ctx, conv.ID, m.CreatedAt); err != nil {
		return db.Message{}, err
	}
	conv.LastMessageAt = m.CreatedAt
	if author.Kind == db.AuthorHuman {
		err := repository.NewUserRepository(tx).IncrementStats(ctx, author.ID, repository.StatsDelta{MessagesSent: 1})
		if err != nil {
			return db.Message{}, err
		}
	}
	return m, nil
}

func validateMessage(author db.Author, content string, messageType db.MessageType) (string, db.MessageType, error) {
	if !author.Valid() {
		return "", "", svcErr.InvalidArgument("author must be a user or a companion")
	}
	if messageType == "" {
		messageType = db.MessageText
	}
	if !messageType.Valid() {
		return "", "", svcErr.InvalidArgument("message_type must be one of text, image, system")
	}
	content = text.Clean(content)
	if content == "" {
		return "", "", svcErr.InvalidArgument("content must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", "", svcErr.InvalidArgument("content is too long")
	}
	return content, messageType, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
