package catalog

import "restoreview/internal/domain"

type CreateRestaurantRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Address     string `json:"address" validate:"required,max=300"`
	City        string `json:"city" validate:"required,max=100"`
	CategoryID  *int64 `json:"category_id,omitempty" validate:"omitempty,gt=0"`
}

type UpdateRestaurantRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=300"`
	City        *string `json:"city,omitempty" validate:"omitempty,max=100"`
	CategoryID  *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
}

type ApproveRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Slug string `json:"slug,omitempty" validate:"omitempty,max=120"`
}

type CreateDishRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
}

type RestaurantPage struct {
	Items  []domain.Restaurant `json:"items"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}
