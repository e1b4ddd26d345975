package conversation

import (
	"time"

	"github.com/oggyb/galatea/internal/db"
	"github.com/oggyb/galatea/internal/repository"
)

// CompanionSummary is the companion card shown in an inbox row.
type CompanionSummary struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ImageURL           string `json:"image_url"`
	Personality        string `json:"personality"`
	CommunicationStyle string `json:"communication_style"`
}

// Message is the API view of a stored message; authorship is the tagged Author.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Author         db.Author      `json:"author"`
	Content        string         `json:"content"`
	MessageType    db.MessageType `json:"message_type"`
	IsRead         bool           `json:"is_read"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Summary is one inbox row.
type Summary struct {
	ID            string                `json:"id"`
	MatchID       string                `json:"match_id"`
	Status        db.ConversationStatus `json:"status"`
	LastMessageAt time.Time             `json:"last_message_at"`
	CreatedAt     time.Time             `json:"created_at"`
	Companion     *CompanionSummary     `json:"companion"`
	LastMessage   *Message              `json:"last_message"`
	UnreadCount   int64                 `json:"unread_count"`
}

// Detail is a conversation with its full companion and message history.
type Detail struct {
	ID            string                `json:"id"`
	MatchID       string                `json:"match_id"`
	Status        db.ConversationStatus `json:"status"`
	LastMessageAt time.Time             `json:"last_message_at"`
	CreatedAt     time.Time             `json:"created_at"`
	Companion     *db.Companion         `json:"companion"`
	Messages      []Message             `json:"messages"`
}

// Page is one slice of history; NextPageToken walks towards older messages.
type Page struct {
	Messages      []Message `json:"messages"`
	NextPageToken *string   `json:"next_page_token,omitempty"`
}

// Reply is the persisted exchange produced by GenerateReply.
type Reply struct {
	ConversationID string  `json:"conversation_id"`
	Response       string  `json:"response"`
	UserMessage    Message `json:"user_message"`
	Reply          Message `json:"reply"`
}

func toMessage(m db.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Author:         m.Author(),
		Content:        m.Content,
		MessageType:    m.MessageType,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessages(ms []db.Message) []Message {
	out := make([]Message, len(ms))
	for i, m := range ms {
		out[i] = toMessage(m)
	}
	return out
}

func toSummary(s repository.ConversationSummary) Summary {
	c := s.Conversation
	out := Summary{
		ID:            c.ID,
		MatchID:       c.MatchID,
		Status:        c.Status,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UnreadCount:   s.UnreadCount,
	}
	if c.Companion != nil {
		out.Companion = &CompanionSummary{
			ID:                 c.Companion.ID,
			Name:               c.Companion.Name,
			ImageURL:           c.Companion.ImageURL,
			Personality:        c.Companion.Personality,
			CommunicationStyle: c.Companion.CommunicationStyle,
		}
	}
	if s.LastMessage != nil {
		m := toMessage(*s.LastMessage)
		out.LastMessage = &m
	}
	return out
}
