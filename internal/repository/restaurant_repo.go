package repository

import (
	"context"
	"errors"
	"time"

	"restoreview/internal/domain"

	"gorm.io/gorm"
)

type RestaurantFilters struct {
	CategoryID *int64
	City       string
	Approved   *bool
	Limit      int
	Offset     int
}

// RestaurantRepository is the restaurant directory: identity, approval and
// the persisted rating aggregate.
type RestaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

// GetByID fetches a restaurant regardless of its approval state.
func (r *RestaurantRepository) GetByID(ctx context.Context, id int64) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	err := r.db.WithContext(ctx).Preload("Category").First(&rest, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, err
	}
	return &rest, nil
}

// GetApprovedByID reports ErrRestaurantNotFound for unapproved restaurants too.
func (r *RestaurantRepository) GetApprovedByID(ctx context.Context, id int64) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND approved = ?", id, true).
		First(&rest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, err
	}
	return &rest, nil
}

func (r *RestaurantRepository) List(ctx context.Context, f RestaurantFilters) ([]domain.Restaurant, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := r.filtered(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Restaurant
	err := q.
		Preload("Category").
		Order("rating DESC, review_count DESC, id ASC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&out).Error
	return out, total, err
}

// ListApproved returns every approved restaurant, optionally in one category.
// It backs the leaderboard, which ranks in memory.
func (r *RestaurantRepository) ListApproved(ctx context.Context, categoryID *int64) ([]domain.Restaurant, error) {
	approved := true
	var out []domain.Restaurant
	err := r.filtered(ctx, RestaurantFilters{CategoryID: categoryID, Approved: &approved}).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *RestaurantRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Restaurant{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *RestaurantRepository) filtered(ctx context.Context, f RestaurantFilters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Restaurant{})
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if f.Approved != nil {
		q = q.Where("approved = ?", *f.Approved)
	}
	return q.Session(&gorm.Session{})
}

// Create inserts a new restaurant. Aggregates always start from zero.
func (r *RestaurantRepository) Create(ctx context.Context, rest *domain.Restaurant) error {
	rest.Rating = 0
	rest.ReviewCount = 0
	return r.db.WithContext(ctx).Omit("Category").Create(rest).Error
}

// UpdateDetails changes descriptive fields. Rating fields are rejected so
// that only the aggregator writes them.
func (r *RestaurantRepository) UpdateDetails(ctx context.Context, id int64, updates map[string]any) error {
	for _, col := range []string{"rating", "review_count", "approved", "owner_id"} {
		if _, ok := updates[col]; ok {
			return domain.ErrInvalidRequest
		}
	}
	updates["updated_at"] = time.Now().UTC()

	tx := r.db.WithContext(ctx).
		Model(&domain.Restaurant{}).
		Where("id = ?", id).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrRestaurantNotFound
	}
	return nil
}

func (r *RestaurantRepository) SetApproved(ctx context.Context, id int64, approved bool) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Restaurant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"approved":   approved,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrRestaurantNotFound
	}
	return nil
}

// PersistAggregate writes the derived rating fields. Only the rating
// aggregator calls it.
func (r *RestaurantRepository) PersistAggregate(ctx context.Context, id int64, rating float64, reviewCount int, updatedAt time.Time) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Restaurant{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"rating":       rating,
			"review_count": reviewCount,
			"updated_at":   updatedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrRestaurantNotFound
	}
	return nil
}
