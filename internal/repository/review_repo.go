package repository

import (
	"context"
	"errors"

	"restoreview/internal/database"
	"restoreview/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewStats is the raw material of a restaurant's rating aggregate.
type ReviewStats struct {
	Count int64
	Sum   int64
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) DB() *gorm.DB {
	return r.db
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	if err := r.db.WithContext(ctx).Create(rv).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateReview
		}
		return err
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetByIDForUpdate locks the review row until the surrounding transaction ends.
// SQLite has no row locks; its writer lock serialises the transaction instead.
func (r *ReviewRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Review, error) {
	q := r.db.WithContext(ctx)
	if database.IsPostgres(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, id)
}

func (r *ReviewRepository) get(q *gorm.DB, id int64) (*domain.Review, error) {
	var rv domain.Review
	if err := q.First(&rv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepository) ExistsByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).
		Count(&count).Error
	return count > 0, err
}

func (r *ReviewRepository) ListByRestaurant(ctx context.Context, restaurantID int64, limit, offset int) ([]domain.Review, int64, error) {
	return r.list(ctx, "restaurant_id = ?", restaurantID, limit, offset)
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Review, int64, error) {
	return r.list(ctx, "user_id = ?", userID, limit, offset)
}

func (r *ReviewRepository) list(ctx context.Context, cond string, arg int64, limit, offset int) ([]domain.Review, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&domain.Review{}).Where(cond, arg).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []domain.Review
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// UpdateOwned applies updates only when userID still authors the review.
// It returns the number of rows changed.
func (r *ReviewRepository) UpdateOwned(ctx context.Context, id, userID int64, updates map[string]any) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumns(updates)
	return tx.RowsAffected, tx.Error
}

func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&domain.Review{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

// AdjustCounters shifts the cached like/dislike counters in place.
func (r *ReviewRepository) AdjustCounters(ctx context.Context, id int64, likesDelta, dislikesDelta int) error {
	if likesDelta == 0 && dislikesDelta == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"likes":    gorm.Expr("likes + ?", likesDelta),
			"dislikes": gorm.Expr("dislikes + ?", dislikesDelta),
		}).Error
}

// Stats scans every review of the restaurant.
func (r *ReviewRepository) Stats(ctx context.Context, restaurantID int64) (ReviewStats, error) {
	var row struct {
		Count int64
		Sum   int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("restaurant_id = ?", restaurantID).
		Scan(&row).Error
	if err != nil {
		return ReviewStats{}, err
	}
	return ReviewStats{Count: row.Count, Sum: row.Sum}, nil
}
