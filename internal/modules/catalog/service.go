package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"restoreview/internal/domain"
	"restoreview/internal/pkg/utils"
	"restoreview/internal/repository"
)

var ErrCategoryExists = errors.New("category already exists")

// BoardInvalidator is told when the set of rankable restaurants changes.
type BoardInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	restaurants *repository.RestaurantRepository
	categories  *repository.CategoryRepository
	dishes      *repository.DishRepository
	board       BoardInvalidator
	logger      *zap.Logger
}

func NewService(
	restaurants *repository.RestaurantRepository,
	categories *repository.CategoryRepository,
	dishes *repository.DishRepository,
	board BoardInvalidator,
	logger *zap.Logger,
) *Service {
	return &Service{
		restaurants: restaurants,
		categories:  categories,
		dishes:      dishes,
		board:       board,
		logger:      logger,
	}
}

/* ---------- RESTAURANTS ---------- */

// CreateRestaurant registers a restaurant owned by ownerID. It stays hidden
// from listings and closed to reviews until an admin approves it.
func (s *Service) CreateRestaurant(ctx context.Context, ownerID int64, req CreateRestaurantRequest) (*domain.Restaurant, error) {
	if ownerID <= 0 || strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	rest := &domain.Restaurant{
		OwnerID:     ownerID,
		CategoryID:  req.CategoryID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		Approved:    false,
	}
	if err := s.restaurants.Create(ctx, rest); err != nil {
		return nil, err
	}

	s.logger.Info("restaurant created",
		zap.Int64("restaurant_id", rest.ID),
		zap.Int64("owner_id", ownerID),
	)
	return rest, nil
}

// UpdateRestaurant edits descriptive fields. Ownership is checked by the
// route middleware.
func (s *Service) UpdateRestaurant(ctx context.Context, id int64, req UpdateRestaurantRequest) (*domain.Restaurant, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		updates["city"] = strings.TrimSpace(*req.City)
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *req.CategoryID
	}
	if len(updates) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	if err := s.restaurants.UpdateDetails(ctx, id, updates); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		s.board.Invalidate(ctx)
	}
	return s.restaurants.GetByID(ctx, id)
}

func (s *Service) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	return s.restaurants.GetApprovedByID(ctx, id)
}

// ListRestaurants lists approved restaurants, best rated first.
func (s *Service) ListRestaurants(ctx context.Context, f repository.RestaurantFilters) (*RestaurantPage, error) {
	approved := true
	f.Approved = &approved
	return s.list(ctx, f)
}

func (s *Service) ListPending(ctx context.Context, limit, offset int) (*RestaurantPage, error) {
	pending := false
	return s.list(ctx, repository.RestaurantFilters{Approved: &pending, Limit: limit, Offset: offset})
}

func (s *Service) list(ctx context.Context, f repository.RestaurantFilters) (*RestaurantPage, error) {
	items, total, err := s.restaurants.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Restaurant{}
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return &RestaurantPage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// SetApproval opens or closes a restaurant to reviews and rankings.
func (s *Service) SetApproval(ctx context.Context, id int64, approved bool) (*domain.Restaurant, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	if err := s.restaurants.SetApproved(ctx, id, approved); err != nil {
		return nil, err
	}
	s.board.Invalidate(ctx)

	s.logger.Info("restaurant approval changed",
		zap.Int64("restaurant_id", id),
		zap.Bool("approved", approved),
	)
	return s.restaurants.GetByID(ctx, id)
}

/* ---------- CATEGORIES ---------- */

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	out, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Category{}
	}
	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if name == "" || slug == "" {
		return nil, domain.ErrInvalidRequest
	}

	cat := &domain.Category{Name: name, Slug: slug}
	if err := s.categories.Create(ctx, cat); err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return cat, nil
}

func (s *Service) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.categories.GetByID(ctx, *id)
	return err
}

/* ---------- DISHES ---------- */

func (s *Service) ListDishes(ctx context.Context, restaurantID int64) ([]domain.Dish, error) {
	if _, err := s.restaurants.GetApprovedByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	out, err := s.dishes.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Dish{}
	}
	return out, nil
}

func (s *Service) CreateDish(ctx context.Context, restaurantID int64, req CreateDishRequest) (*domain.Dish, error) {
	if strings.TrimSpace(req.Name) == "" || req.Price < 0 {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}

	d := &domain.Dish{
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
	}
	if err := s.dishes.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
