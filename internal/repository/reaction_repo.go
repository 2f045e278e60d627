package repository

import (
	"context"
	"errors"
	"time"

	"restoreview/internal/database"
	"restoreview/internal/domain"

	"gorm.io/gorm"
)

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func (r *ReactionRepository) WithTx(tx *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: tx}
}

func (r *ReactionRepository) Get(ctx context.Context, reviewID, userID int64) (*domain.Reaction, error) {
	var re domain.Reaction
	err := r.db.WithContext(ctx).
		Where("review_id = ? AND user_id = ?", reviewID, userID).
		First(&re).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReactionNotFound
		}
		return nil, err
	}
	return &re, nil
}

func (r *ReactionRepository) Create(ctx context.Context, re *domain.Reaction) error {
	if err := r.db.WithContext(ctx).Create(re).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrReactionConflict
		}
		return err
	}
	return nil
}

func (r *ReactionRepository) UpdateType(ctx context.Context, id int64, t domain.ReactionType) error {
	return r.db.WithContext(ctx).
		Model(&domain.Reaction{}).
		Where("id = ?", id).
		Updates(map[string]any{"type": t, "updated_at": time.Now().UTC()}).Error
}

func (r *ReactionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Reaction{}, id).Error
}

func (r *ReactionRepository) DeleteByReview(ctx context.Context, reviewID int64) (int64, error) {
	tx := r.db.WithContext(ctx).Where("review_id = ?", reviewID).Delete(&domain.Reaction{})
	return tx.RowsAffected, tx.Error
}

func (r *ReactionRepository) CountByReview(ctx context.Context, reviewID int64) (likes, dislikes int64, err error) {
	var rows []struct {
		Type  domain.ReactionType
		Total int64
	}
	err = r.db.WithContext(ctx).
		Model(&domain.Reaction{}).
		Select("type, COUNT(*) AS total").
		Where("review_id = ?", reviewID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		switch row.Type {
		case domain.ReactionLike:
			likes = row.Total
		case domain.ReactionDislike:
			dislikes = row.Total
		}
	}
	return likes, dislikes, nil
}
