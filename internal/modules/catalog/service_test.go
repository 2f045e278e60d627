package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"restoreview/internal/database/databasetest"
	"restoreview/internal/domain"
	"restoreview/internal/repository"
)

type countingBoard struct{ n int }

func (b *countingBoard) Invalidate(context.Context) { b.n++ }

func newTestService(t *testing.T) (*Service, *countingBoard, *gorm.DB) {
	t.Helper()
	db := databasetest.Open(t)
	board := &countingBoard{}
	svc := NewService(
		repository.NewRestaurantRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewDishRepository(db),
		board,
		zap.NewNop(),
	)
	return svc, board, db
}

func TestCreateRestaurant_StartsPendingWithZeroAggregate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rest, err := svc.CreateRestaurant(ctx, 5, CreateRestaurantRequest{Name: " Navat ", Address: "Abay 1", City: "Almaty"})
	require.NoError(t, err)
	assert.False(t, rest.Approved)
	assert.Equal(t, "Navat", rest.Name)
	assert.Zero(t, rest.Rating)
	assert.Zero(t, rest.ReviewCount)

	_, err = svc.GetRestaurant(ctx, rest.ID)
	assert.ErrorIs(t, err, domain.ErrRestaurantNotFound)

	page, err := svc.ListRestaurants(ctx, repository.RestaurantFilters{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	pending, err := svc.ListPending(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, rest.ID, pending.Items[0].ID)
}

func TestCreateRestaurant_UnknownCategory(t *testing.T) {
	svc, _, _ := newTestService(t)
	missing := int64(42)

	_, err := svc.CreateRestaurant(context.Background(), 5, CreateRestaurantRequest{Name: "X1", Address: "a", City: "b", CategoryID: &missing})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestSetApproval_InvalidatesBoard(t *testing.T) {
	svc, board, _ := newTestService(t)
	ctx := context.Background()

	rest, err := svc.CreateRestaurant(ctx, 5, CreateRestaurantRequest{Name: "Navat", Address: "a", City: "Almaty"})
	require.NoError(t, err)

	approved, err := svc.SetApproval(ctx, rest.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.Equal(t, 1, board.n)

	got, err := svc.GetRestaurant(ctx, rest.ID)
	require.NoError(t, err)
	assert.Equal(t, rest.ID, got.ID)

	_, err = svc.SetApproval(ctx, 9999, true)
	assert.ErrorIs(t, err, domain.ErrRestaurantNotFound)
}

func TestUpdateRestaurant(t *testing.T) {
	svc, board, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Kazakh Cuisine"})
	require.NoError(t, err)
	rest, err := svc.CreateRestaurant(ctx, 5, CreateRestaurantRequest{Name: "Navat", Address: "a", City: "Almaty"})
	require.NoError(t, err)

	name := "Navat Dostyk"
	updated, err := svc.UpdateRestaurant(ctx, rest.ID, UpdateRestaurantRequest{Name: &name, CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Navat Dostyk", updated.Name)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, cat.ID, *updated.CategoryID)
	assert.Equal(t, 1, board.n)

	_, err = svc.UpdateRestaurant(ctx, rest.ID, UpdateRestaurantRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCategories(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Fast Food"})
	require.NoError(t, err)
	assert.Equal(t, "fast-food", cat.Slug)

	_, err = svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Fast Food"})
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = svc.CreateCategory(ctx, CreateCategoryRequest{Name: "!!!"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestDishes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rest, err := svc.CreateRestaurant(ctx, 5, CreateRestaurantRequest{Name: "Navat", Address: "a", City: "Almaty"})
	require.NoError(t, err)

	_, err = svc.CreateDish(ctx, rest.ID, CreateDishRequest{Name: "Beshbarmak", Price: 4500})
	require.NoError(t, err)
	_, err = svc.CreateDish(ctx, rest.ID, CreateDishRequest{Name: "Baursak", Price: 800})
	require.NoError(t, err)

	// hidden until approved
	_, err = svc.ListDishes(ctx, rest.ID)
	assert.ErrorIs(t, err, domain.ErrRestaurantNotFound)

	_, err = svc.SetApproval(ctx, rest.ID, true)
	require.NoError(t, err)

	dishes, err := svc.ListDishes(ctx, rest.ID)
	require.NoError(t, err)
	require.Len(t, dishes, 2)
	assert.Equal(t, "Baursak", dishes[0].Name)

	_, err = svc.CreateDish(ctx, rest.ID, CreateDishRequest{Name: "Free lunch", Price: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = svc.CreateDish(ctx, 9999, CreateDishRequest{Name: "Ghost", Price: 1})
	assert.ErrorIs(t, err, domain.ErrRestaurantNotFound)
}
