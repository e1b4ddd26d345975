package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/galatea/internal/db"
)

// UserRepository covers users and the per-user profile, preferences and stats rows.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a user. Duplicate emails surface as gorm.ErrDuplicatedKey.
func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	u.Email = normalizeEmail(u.Email)
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// TouchLogin records a successful sign-in.
func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// SetRole changes the role of the account registered under email.
func (r *UserRepository) SetRole(ctx context.Context, email string, role db.Role) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("email = ?", normalizeEmail(email)).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Profile loads the profile row sharing the user's id.
func (r *UserRepository) Profile(ctx context.Context, userID string) (*db.UserProfile, error) {
	var p db.UserProfile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile applies a partial update to the profile. Keys are column names.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&db.UserProfile{}).
		Where("id = ?", userID).
		Updates(fields).Error
}

func (r *UserRepository) Preferences(ctx context.Context, userID string) (*db.UserPreferences, error) {
	var p db.UserPreferences
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

var preferenceColumns = []string{
	"age_range_min", "age_range_max", "preferred_personalities",
	"preferred_interests", "communication_style_preference",
	"relationship_goals", "updated_at",
}

// SavePreferences writes the preferences row keyed by user_id.
// A row loaded earlier (ID set) is updated in place; otherwise it is upserted.
func (r *UserRepository) SavePreferences(ctx context.Context, p *db.UserPreferences) error {
	if p.ID != "" {
		return r.db.WithContext(ctx).
			Model(p).
			Select(preferenceColumns).
			Updates(p).Error
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(preferenceColumns),
		}).
		Create(p).Error
}

func (r *UserRepository) Stats(ctx context.Context, userID string) (*db.UserStats, error) {
	var s db.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// StatsDelta lists counter increments. Zero fields are skipped.
type StatsDelta struct {
	Swipes        int64
	Likes         int64
	Passes        int64
	SuperLikes    int64
	Matches       int64
	Conversations int64
	MessagesSent  int64
}

// IncrementStats adds delta to the user's counters atomically in SQL.
// A missing stats row is created first.
func (r *UserRepository) IncrementStats(ctx context.Context, userID string, delta StatsDelta) error {
	updates := map[string]any{}
	add := func(col string, n int64) {
		if n != 0 {
			updates[col] = gorm.Expr(col+" + ?", n)
		}
	}
	add("total_swipes", delta.Swipes)
	add("total_likes", delta.Likes)
	add("total_passes", delta.Passes)
	add("total_super_likes", delta.SuperLikes)
	add("total_matches", delta.Matches)
	add("total_conversations", delta.Conversations)
	add("total_messages_sent", delta.MessagesSent)
	if len(updates) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.UserStats{UserID: userID}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&db.UserStats{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
