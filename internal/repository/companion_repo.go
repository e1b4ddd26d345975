package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/db"
)

// CompanionRepository reads and writes the companion catalogue.
type CompanionRepository struct {
	db *gorm.DB
}

func NewCompanionRepository(database *gorm.DB) *CompanionRepository {
	return &CompanionRepository{db: database}
}

// FindActive loads an active companion. Inactive or missing -> gorm.ErrRecordNotFound.
func (r *CompanionRepository) FindActive(ctx context.Context, id string) (*db.Companion, error) {
	var c db.Companion
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID loads a companion regardless of its active flag.
func (r *CompanionRepository) FindByID(ctx context.Context, id string) (*db.Companion, error) {
	var c db.Companion
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActive returns active companions, best compatibility first.
func (r *CompanionRepository) ListActive(ctx context.Context, limit int) ([]db.Companion, error) {
	var out []db.Companion
	q := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("compatibility_score DESC, name ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

// ListUnswiped returns active companions the user has not decided on yet.
// excluded is typically DecisionRepository.SwipedCompanionIDs(userID).
func (r *CompanionRepository) ListUnswiped(ctx context.Context, excluded *gorm.DB) ([]db.Companion, error) {
	var out []db.Companion
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", excluded).
		Order("compatibility_score DESC, name ASC, id ASC").
		Find(&out).Error
	return out, err
}

// Create inserts a companion.
func (r *CompanionRepository) Create(ctx context.Context, c *db.Companion) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Update applies a partial update. Keys are column names.
func (r *CompanionRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&db.Companion{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetActive toggles the soft-delete flag.
func (r *CompanionRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&db.Companion{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
