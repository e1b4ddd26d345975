package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/db"
)

// MatchRepository reads and writes Match rows.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// FindByPair returns the match for (user, companion), or nil.
func (r *MatchRepository) FindByPair(ctx context.Context, userID, companionID string) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND companion_id = ?", userID, companionID).
		Limit(1).
		Find(&m).Error
	if err != nil || m.ID == "" {
		return nil, err
	}
	return &m, nil
}

// FindForUser loads a match owned by userID. gorm.ErrRecordNotFound otherwise.
func (r *MatchRepository) FindForUser(ctx context.Context, userID, matchID string) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", matchID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Ensure returns the match for the pair, creating it when missing.
//
// Behavior:
//   - An existing inactive match is reactivated.
//   - created reports whether a new row was inserted.
//   - A unique-index race is resolved by re-reading the winner's row.
func (r *MatchRepository) Ensure(ctx context.Context, userID, companionID string, at time.Time) (m *db.Match, created bool, err error) {
	m, err = r.FindByPair(ctx, userID, companionID)
	if err != nil {
		return nil, false, err
	}
	if m != nil {
		if !m.IsActive {
			if err := r.setActive(ctx, m.ID, true); err != nil {
				return nil, false, err
			}
			m.IsActive = true
		}
		return m, false, nil
	}

	m = &db.Match{UserID: userID, CompanionID: companionID, MatchedAt: at, IsActive: true}
	// nested transaction = savepoint, so the caller's tx survives a lost race
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(m).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			m, err = r.FindByPair(ctx, userID, companionID)
			return m, false, err
		}
		return nil, false, err
	}
	return m, true, nil
}

// ListActive returns the user's active matches with their companion, newest first.
func (r *MatchRepository) ListActive(ctx context.Context, userID string) ([]db.Match, error) {
	var out []db.Match
	err := r.db.WithContext(ctx).
		Preload("Companion").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("matched_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// Deactivate flips is_active off for the match.
func (r *MatchRepository) Deactivate(ctx context.Context, matchID string) error {
	return r.setActive(ctx, matchID, false)
}

func (r *MatchRepository) setActive(ctx context.Context, matchID string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", matchID).
		Update("is_active", active).Error
}
