package completion

import (
	"fmt"
	"strings"

	"github.com/oggyb/galatea/internal/db"
)

// Role values understood by chat-completion APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of the conversation history sent upstream.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Persona is the companion attributes that shape a reply.
type Persona struct {
	Name               string
	Age                int
	Personality        string
	Bio                string
	CommunicationStyle string
	Interests          []string
	Traits             []string
	FavoriteTopics     []string
	RelationshipGoals  []string
	Backstory          string
	LearningCapacity   string
}

// PersonaFromCompanion copies the persona fields of a companion row.
func PersonaFromCompanion(c *db.Companion) Persona {
	return Persona{
		Name:               c.Name,
		Age:                c.Age,
		Personality:        c.Personality,
		Bio:                c.Bio,
		CommunicationStyle: c.CommunicationStyle,
		Interests:          c.Interests,
		Traits:             c.PersonalityTraits,
		FavoriteTopics:     c.FavoriteTopics,
		RelationshipGoals:  c.RelationshipGoals,
		Backstory:          c.Backstory,
		LearningCapacity:   c.LearningCapacity,
	}
}

// UserContext is what the companion knows about the person it talks to.
type UserContext struct {
	DisplayName string
	Interests   []string
	Traits      []string
}

// UserContextFromProfile tolerates a nil profile.
func UserContextFromProfile(p *db.UserProfile) UserContext {
	if p == nil {
		return UserContext{}
	}
	return UserContext{
		DisplayName: p.DisplayName,
		Interests:   p.Interests,
		Traits:      p.PersonalityTraits,
	}
}

// BuildSystemPrompt renders persona and user context into the system message.
// Output depends only on its inputs; field order is fixed.
func BuildSystemPrompt(p Persona, u UserContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a %d-year-old AI companion with the following characteristics:\n\n", p.Name, p.Age)
	fmt.Fprintf(&b, "Personality: %s\n", orUnknown(p.Personality))
	fmt.Fprintf(&b, "Bio: %s\n", orUnknown(p.Bio))
	fmt.Fprintf(&b, "Communication Style: %s\n", orUnknown(p.CommunicationStyle))
	fmt.Fprintf(&b, "Interests: %s\n", joinOrUnknown(p.Interests))
	fmt.Fprintf(&b, "Personality Traits: %s\n", joinOrUnknown(p.Traits))
	fmt.Fprintf(&b, "Favorite Topics: %s\n", joinOrUnknown(p.FavoriteTopics))
	fmt.Fprintf(&b, "Relationship Goals: %s\n", joinOrUnknown(p.RelationshipGoals))
	fmt.Fprintf(&b, "Backstory: %s\n", orUnknown(p.Backstory))
	if p.LearningCapacity != "" {
		fmt.Fprintf(&b, "Learning Capacity: %s\n", p.LearningCapacity)
	}

	name := u.DisplayName
	if strings.TrimSpace(name) == "" {
		name = "Friend"
	}
	b.WriteString("\nUser Context:\n")
	fmt.Fprintf(&b, "- Name: %s\n", name)
	fmt.Fprintf(&b, "- Interests: %s\n", joinOrUnknown(u.Interests))
	fmt.Fprintf(&b, "- Personality Traits: %s\n", joinOrUnknown(u.Traits))

	b.WriteString("\nGuidelines:\n")
	guidelines := []string{
		fmt.Sprintf("Stay in character as %s at all times", p.Name),
		"Use your unique communication style and personality",
		"Reference your interests and backstory naturally",
		"Be engaging, authentic, and emotionally intelligent",
		"Adapt to the user's communication style while maintaining your personality",
		"Keep responses conversational and not too long",
		"Show genuine interest in the user and remember details from past conversations",
		"Use what you learn to adapt to the user's preferences",
	}
	for i, g := range guidelines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}
	fmt.Fprintf(&b, "\nRespond as %s would, maintaining your personality while being helpful and engaging.", p.Name)
	return b.String()
}

// TrimHistory keeps the last n turns. n <= 0 drops the history entirely.
func TrimHistory(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// HistoryFromMessages maps stored messages onto chat roles.
func HistoryFromMessages(msgs []db.Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.MessageType == db.MessageSystem {
			continue
		}
		role := RoleUser
		if m.Author().Kind == db.AuthorCompanion {
			role = RoleAssistant
		}
		out = append(out, Turn{Role: role, Content: m.Content})
	}
	return out
}

// BuildMessages assembles system prompt, capped history and the new user message.
func BuildMessages(p Persona, u UserContext, history []Turn, userMessage string, window int) []Turn {
	h := TrimHistory(history, window)
	out := make([]Turn, 0, len(h)+2)
	out = append(out, Turn{Role: RoleSystem, Content: BuildSystemPrompt(p, u)})
	out = append(out, h...)
	out = append(out, Turn{Role: RoleUser, Content: userMessage})
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func joinOrUnknown(items []string) string {
	if len(items) == 0 {
		return "Unknown"
	}
	return strings.Join(items, ", ")
}
