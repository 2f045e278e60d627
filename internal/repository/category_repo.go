package repository

import (
	"context"
	"errors"

	"restoreview/internal/database"
	"restoreview/internal/domain"

	"gorm.io/gorm"
)

var ErrCategoryExists = errors.New("category already exists")

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrCategoryExists
		}
		return err
	}
	return nil
}

type DishRepository struct {
	db *gorm.DB
}

func NewDishRepository(db *gorm.DB) *DishRepository {
	return &DishRepository{db: db}
}

func (r *DishRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]domain.Dish, error) {
	var out []domain.Dish
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *DishRepository) Create(ctx context.Context, d *domain.Dish) error {
	return r.db.WithContext(ctx).Create(d).Error
}
