package db

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/logger"
)

// DemoEmail and DemoPassword identify the seeded demo account.
const (
	DemoEmail    = "demo@galatea.local"
	DemoPassword = "password123"
)

// DefaultCompanions is the hand-written starter catalogue.
func DefaultCompanions() []Companion {
	return []Companion{
		{
			Name:               "Luna",
			Age:                25,
			Bio:                "A creative soul who loves art, music, and deep conversations under the stars.",
			Personality:        "Creative and empathetic",
			Interests:          StringList{"Art", "Music", "Astronomy", "Photography"},
			PersonalityTraits:  StringList{"Creative", "Empathetic", "Adventurous"},
			CommunicationStyle: "Thoughtful and poetic",
			LearningCapacity:   "Remembers small details and brings them up later",
			Backstory:          "Grew up in a coastal town painting the night sky from her rooftop.",
			FavoriteTopics:     StringList{"Constellations", "Film photography", "Indie music"},
			RelationshipGoals:  StringList{"Deep connection", "Creative partnership"},
			ImageURL:           "/images/galatea-1.png",
			CompatibilityScore: 0.92,
			IsActive:           true,
		},
		{
			Name:               "Alex",
			Age:                28,
			Bio:                "Tech enthusiast and fitness lover who enjoys solving problems and staying active.",
			Personality:        "Analytical and energetic",
			Interests:          StringList{"Technology", "Fitness", "Gaming", "Cooking"},
			PersonalityTraits:  StringList{"Analytical", "Energetic", "Optimistic"},
			CommunicationStyle: "Direct and enthusiastic",
			LearningCapacity:   "Adapts quickly to your sense of humour",
			Backstory:          "Left a startup job to coach climbing and build side projects.",
			FavoriteTopics:     StringList{"Gadgets", "Training plans", "Street food"},
			RelationshipGoals:  StringList{"Active lifestyle partner", "Friendship"},
			ImageURL:           "/images/galatea-2.png",
			CompatibilityScore: 0.87,
			IsActive:           true,
		},
		{
			Name:               "Maya",
			Age:                26,
			Bio:                "Book lover and world traveler with a passion for learning new cultures and languages.",
			Personality:        "Intellectual and warm",
			Interests:          StringList{"Reading", "Travel", "Languages", "History"},
			PersonalityTraits:  StringList{"Intellectual", "Curious", "Warm"},
			CommunicationStyle: "Inquisitive and warm",
			LearningCapacity:   "Picks up your favourite books and asks about them",
			Backstory:          "Spent three years teaching English abroad and never stopped travelling.",
			FavoriteTopics:     StringList{"Classic novels", "Hidden travel spots", "Etymology"},
			RelationshipGoals:  StringList{"Long-term relationship", "Shared adventures"},
			ImageURL:           "/images/galatea-3.png",
			CompatibilityScore: 0.9,
			IsActive:           true,
		},
	}
}

// FakeCompanions generates n random companions. The same seed yields the same set.
func FakeCompanions(seed int64, n int) []Companion {
	f := gofakeit.New(seed)
	styles := []string{"Playful and witty", "Calm and reflective", "Bold and flirty", "Gentle and supportive"}
	traits := []string{"Kind", "Curious", "Funny", "Loyal", "Spontaneous", "Patient", "Ambitious", "Dreamy"}
	goals := []string{"Friendship", "Long-term relationship", "Casual chats", "Deep connection"}

	out := make([]Companion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Companion{
			Name:               f.FirstName(),
			Age:                f.Number(21, 45),
			Bio:                f.Sentence(14),
			Personality:        f.Adjective() + " and " + f.Adjective(),
			Interests:          StringList{f.Hobby(), f.Hobby(), f.Hobby()},
			PersonalityTraits:  StringList{f.RandomString(traits), f.RandomString(traits)},
			CommunicationStyle: f.RandomString(styles),
			LearningCapacity:   "Learns from every conversation",
			Backstory:          f.Paragraph(1, 3, 10, " "),
			FavoriteTopics:     StringList{f.Hobby(), f.Noun()},
			RelationshipGoals:  StringList{f.RandomString(goals)},
			ImageURL:           fmt.Sprintf("https://picsum.photos/seed/%s/600/800", f.UUID()),
			CompatibilityScore: float64(f.Number(50, 95)) / 100,
			IsActive:           true,
		})
	}
	return out
}

// SeedTestData resets the database and populates it with companions and a demo account.
//
// Behavior:
//  1. Clears every table, children first.
//  2. Inserts the default companions plus `extra` generated ones.
//  3. Creates the demo user with profile, preferences and zeroed stats.
//
// Compatible with MySQL, Postgres and SQLite.
func SeedTestData(db *gorm.DB, extra int) error {
	log := logger.With("op", "seed")

	for _, table := range []string{
		"messages", "conversations", "matches", "swipe_decisions",
		"user_stats", "user_preferences", "user_profiles", "users", "companions",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Info("cleared existing data")

	companions := append(DefaultCompanions(), FakeCompanions(time.Now().UnixNano(), extra)...)
	if err := db.Create(&companions).Error; err != nil {
		return fmt.Errorf("failed to seed companions: %w", err)
	}
	log.Info("seeded companions", "count", len(companions))

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := User{Email: DemoEmail, PasswordHash: string(hash), Active: true}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		if err := CreateAccountRows(tx, user.ID, "Demo"); err != nil {
			return err
		}
		log.Info("seeded demo user", "email", DemoEmail)
		return nil
	})
}

// CreateAccountRows inserts the profile, preferences and stats rows every user owns.
func CreateAccountRows(tx *gorm.DB, userID, displayName string) error {
	profile := UserProfile{
		ID:                userID,
		DisplayName:       displayName,
		Interests:         StringList{},
		PersonalityTraits: StringList{},
		IsActive:          true,
	}
	if err := tx.Create(&profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	prefs := UserPreferences{
		UserID:                 userID,
		AgeRangeMin:            18,
		AgeRangeMax:            99,
		PreferredPersonalities: StringList{},
		PreferredInterests:     StringList{},
		RelationshipGoals:      StringList{},
	}
	if err := tx.Create(&prefs).Error; err != nil {
		return fmt.Errorf("failed to create preferences: %w", err)
	}

	if err := tx.Create(&UserStats{UserID: userID}).Error; err != nil {
		return fmt.Errorf("failed to create stats: %w", err)
	}
	return nil
}
