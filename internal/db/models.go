package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// newID returns a time-ordered UUID (v7). Ids generated by one process
// sort in creation order, which keeps (created_at, id) a stable ordering.
func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// StringList is stored as a JSON array column.
type StringList = datatypes.JSONSlice[string]

// Role gates the admin routes. Every account starts as RoleUser.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the local identity record behind a session.
type User struct {
	ID           string    `gorm:"primaryKey;type:char(36)"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:user"`
	Active       bool      `gorm:"default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Companion is a persona-bearing profile users swipe on and chat with.
// Soft-deleted through IsActive; never hard-deleted while referenced.
type Companion struct {
	ID                 string     `gorm:"primaryKey;type:char(36)" json:"id"`
	Name               string     `gorm:"size:64;not null" json:"name"`
	Age                int        `gorm:"not null" json:"age"`
	Bio                string     `gorm:"type:text" json:"bio"`
	Personality        string     `gorm:"size:255" json:"personality"`
	Interests          StringList `json:"interests"`
	PersonalityTraits  StringList `json:"personality_traits"`
	CommunicationStyle string     `gorm:"size:255" json:"communication_style"`
	LearningCapacity   string     `gorm:"size:255" json:"learning_capacity,omitempty"`
	Backstory          string     `gorm:"type:text" json:"backstory"`
	FavoriteTopics     StringList `json:"favorite_topics"`
	RelationshipGoals  StringList `json:"relationship_goals"`
	ImageURL           string     `gorm:"size:512" json:"image_url"`
	CompatibilityScore float64    `gorm:"default:0;index:idx_companion_active_score,priority:2,sort:desc" json:"compatibility_score"`
	IsActive           bool       `gorm:"default:true;index:idx_companion_active_score,priority:1" json:"is_active"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Companion) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// Decision is a user's directional judgment on a companion.
type Decision string

const (
	DecisionLike      Decision = "like"
	DecisionPass      Decision = "pass"
	DecisionSuperLike Decision = "super_like"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionLike, DecisionPass, DecisionSuperLike:
		return true
	}
	return false
}

// Positive reports whether d produces a match.
func (d Decision) Positive() bool {
	return d == DecisionLike || d == DecisionSuperLike
}

// SwipeDecision is append-only: one row per (user, companion), ever.
//
// Indexes:
//   - ux_swipe_user_companion(user_id, companion_id) UNIQUE
//     Enforces the single-decision rule at the store.
//   - idx_swipe_companion_decision(companion_id, decision)
//     Serves per-companion like counters.
type SwipeDecision struct {
	ID          string    `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID      string    `gorm:"type:char(36);not null;uniqueIndex:ux_swipe_user_companion,priority:1" json:"user_id"`
	CompanionID string    `gorm:"type:char(36);not null;uniqueIndex:ux_swipe_user_companion,priority:2;index:idx_swipe_companion_decision,priority:1" json:"companion_id"`
	Decision    Decision  `gorm:"size:16;not null;index:idx_swipe_companion_decision,priority:2" json:"decision"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *SwipeDecision) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

// Match mirrors a positive decision for a (user, companion) pair.
type Match struct {
	ID          string     `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID      string     `gorm:"type:char(36);not null;uniqueIndex:ux_match_user_companion,priority:1;index:idx_match_user_active,priority:1" json:"user_id"`
	CompanionID string     `gorm:"type:char(36);not null;uniqueIndex:ux_match_user_companion,priority:2" json:"companion_id"`
	MatchedAt   time.Time  `gorm:"not null" json:"matched_at"`
	IsActive    bool       `gorm:"default:true;index:idx_match_user_active,priority:2" json:"is_active"`
	Companion   *Companion `gorm:"foreignKey:CompanionID" json:"companion,omitempty"`
}

func (m *Match) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
	ConversationBlocked  ConversationStatus = "blocked"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationActive, ConversationArchived, ConversationBlocked:
		return true
	}
	return false
}

// Conversation is the message thread bound to exactly one match.
// At most one conversation exists per (user, companion).
type Conversation struct {
	ID            string             `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID        string             `gorm:"type:char(36);not null;uniqueIndex:ux_conversation_user_companion,priority:1;index:idx_conversation_user_status_last,priority:1" json:"user_id"`
	CompanionID   string             `gorm:"type:char(36);not null;uniqueIndex:ux_conversation_user_companion,priority:2" json:"companion_id"`
	MatchID       string             `gorm:"type:char(36);not null;index" json:"match_id"`
	Status        ConversationStatus `gorm:"size:16;not null;default:active;index:idx_conversation_user_status_last,priority:2" json:"status"`
	LastMessageAt time.Time          `gorm:"not null;index:idx_conversation_user_status_last,priority:3,sort:desc" json:"last_message_at"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	Match         *Match             `gorm:"foreignKey:MatchID" json:"-"`
	Companion     *Companion         `gorm:"foreignKey:CompanionID" json:"companion,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = ConversationActive
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = tx.NowFunc()
	}
	return nil
}

// MessageType classifies message content.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageSystem:
		return true
	}
	return false
}

// AuthorKind discriminates who wrote a message.
type AuthorKind string

const (
	AuthorHuman     AuthorKind = "user"
	AuthorCompanion AuthorKind = "companion"
)

// Author identifies a message writer: either a human user or a companion.
// Build it with HumanAuthor or CompanionAuthor.
type Author struct {
	Kind AuthorKind `json:"kind"`
	ID   string     `json:"id"`
}

func HumanAuthor(userID string) Author { return Author{Kind: AuthorHuman, ID: userID} }

func CompanionAuthor(companionID string) Author {
	return Author{Kind: AuthorCompanion, ID: companionID}
}

// Valid reports whether a is one of the two known variants with an id.
func (a Author) Valid() bool {
	return a.ID != "" && (a.Kind == AuthorHuman || a.Kind == AuthorCompanion)
}

// Message is one turn in a conversation. Only IsRead ever changes after insert.
//
// SenderID and CompanionID are the storage encoding of Author: exactly one
// of them is set. Use NewMessage and Message.Author instead of the columns.
type Message struct {
	ID             string      `gorm:"primaryKey;type:char(36)" json:"id"`
	ConversationID string      `gorm:"type:char(36);not null;index:idx_message_conversation_created,priority:1" json:"conversation_id"`
	SenderID       *string     `gorm:"type:char(36)" json:"-"`
	CompanionID    *string     `gorm:"type:char(36)" json:"-"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	MessageType    MessageType `gorm:"size:16;not null;default:text" json:"message_type"`
	IsRead         bool        `gorm:"default:false" json:"is_read"`
	CreatedAt      time.Time   `gorm:"autoCreateTime;index:idx_message_conversation_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

// NewMessage builds a message row with the author encoded in the right column.
func NewMessage(conversationID string, author Author, content string, msgType MessageType) Message {
	m := Message{
		ConversationID: conversationID,
		Content:        content,
		MessageType:    msgType,
	}
	id := author.ID
	switch author.Kind {
	case AuthorHuman:
		m.SenderID = &id
	case AuthorCompanion:
		m.CompanionID = &id
	}
	return m
}

// Author decodes the storage columns back into the tagged variant.
func (m Message) Author() Author {
	if m.CompanionID != nil {
		return CompanionAuthor(*m.CompanionID)
	}
	if m.SenderID != nil {
		return HumanAuthor(*m.SenderID)
	}
	return Author{}
}

// UserProfile shares its primary key with User.
type UserProfile struct {
	ID                string     `gorm:"primaryKey;type:char(36)" json:"id"`
	DisplayName       string     `gorm:"size:64" json:"display_name"`
	Bio               string     `gorm:"type:text" json:"bio"`
	Age               *int       `json:"age,omitempty"`
	Location          string     `gorm:"size:128" json:"location"`
	Interests         StringList `json:"interests"`
	PersonalityTraits StringList `json:"personality_traits"`
	AvatarURL         string     `gorm:"size:512" json:"avatar_url"`
	IsActive          bool       `gorm:"default:true" json:"is_active"`
	LastActiveAt      *time.Time `json:"last_active_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type UserPreferences struct {
	ID                           string     `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID                       string     `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	AgeRangeMin                  int        `gorm:"default:18" json:"age_range_min"`
	AgeRangeMax                  int        `gorm:"default:99" json:"age_range_max"`
	PreferredPersonalities       StringList `json:"preferred_personalities"`
	PreferredInterests           StringList `json:"preferred_interests"`
	CommunicationStylePreference string     `gorm:"size:255" json:"communication_style_preference"`
	RelationshipGoals            StringList `json:"relationship_goals"`
	CreatedAt                    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *UserPreferences) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// UserStats counters are changed in the same transaction as the action they count.
type UserStats struct {
	ID                 string    `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID             string    `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	TotalSwipes        int64     `gorm:"default:0" json:"total_swipes"`
	TotalLikes         int64     `gorm:"default:0" json:"total_likes"`
	TotalPasses        int64     `gorm:"default:0" json:"total_passes"`
	TotalSuperLikes    int64     `gorm:"default:0" json:"total_super_likes"`
	TotalMatches       int64     `gorm:"default:0" json:"total_matches"`
	TotalConversations int64     `gorm:"default:0" json:"total_conversations"`
	TotalMessagesSent  int64     `gorm:"default:0" json:"total_messages_sent"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *UserStats) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Companion{},
		&SwipeDecision{},
		&Match{},
		&Conversation{},
		&Message{},
		&UserProfile{},
		&UserPreferences{},
		&UserStats{},
	}
}
