package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/db"
)

// ErrDuplicateDecision is returned when (user, companion) already has a decision.
var ErrDuplicateDecision = errors.New("decision already recorded")

// DecisionRepository provides data access methods for the SwipeDecision model.
// Decisions are append-only: there is no update or delete path.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
// Pass a transaction handle to run its methods inside that transaction.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// Find returns the decision for the pair, or nil when none exists.
func (r *DecisionRepository) Find(ctx context.Context, userID, companionID string) (*db.SwipeDecision, error) {
	var d db.SwipeDecision
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND companion_id = ?", userID, companionID).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == "" {
		return nil, nil
	}
	return &d, nil
}

// Create inserts a decision made by user -> companion.
//
// Behavior:
//   - Checks for an existing row for the pair first and returns
//     ErrDuplicateDecision without touching the table.
//   - A concurrent insert that wins the race trips the unique index;
//     that violation is reported as ErrDuplicateDecision as well.
//
// Example:
//
//	err := repo.Create(ctx, &db.SwipeDecision{UserID: u, CompanionID: c, Decision: db.DecisionLike})
//	if errors.Is(err, repository.ErrDuplicateDecision) { ... }
func (r *DecisionRepository) Create(ctx context.Context, d *db.SwipeDecision) error {
	existing, err := r.Find(ctx, d.UserID, d.CompanionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateDecision
	}

	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateDecision
		}
		return err
	}
	return nil
}

// ListByUser returns a user's decisions, newest first.
func (r *DecisionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db.SwipeDecision, error) {
	var out []db.SwipeDecision
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

// CountPositive returns how many users liked or super-liked the companion.
// Used in conjunction with Redis cache (DB is fallback).
//
// Example:
//
//	repo.CountPositive(ctx, companionID) // -> 123
func (r *DecisionRepository) CountPositive(ctx context.Context, companionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.SwipeDecision{}).
		Where("companion_id = ? AND decision IN ?", companionID,
			[]db.Decision{db.DecisionLike, db.DecisionSuperLike}).
		Count(&count).Error
	return count, err
}

// SwipedCompanionIDs is a subquery selecting every companion the user has decided on.
func (r *DecisionRepository) SwipedCompanionIDs(userID string) *gorm.DB {
	return r.db.Model(&db.SwipeDecision{}).Select("companion_id").Where("user_id = ?", userID)
}
