package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restoreview/internal/domain"
	"restoreview/internal/pkg/response"
	"restoreview/internal/pkg/validator"
	"restoreview/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires catalog endpoints. ownerOnly guards routes that act
// on a restaurant the caller must own.
func (h *Handler) RegisterRoutes(public, protected, admin *gin.RouterGroup, ownerOnly gin.HandlerFunc) {
	if public != nil {
		public.GET("/categories", h.ListCategories)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/dishes", h.ListDishes)
	}

	if protected != nil {
		protected.POST("/restaurants", h.CreateRestaurant)
		protected.PATCH("/restaurants/:id", ownerOnly, h.UpdateRestaurant)
		protected.POST("/restaurants/:id/dishes", ownerOnly, h.CreateDish)
	}

	if admin != nil {
		admin.POST("/categories", h.CreateCategory)
		admin.GET("/restaurants/pending", h.ListPending)
		admin.PUT("/restaurants/:id/approve", h.SetApproval)
	}
}

// ListRestaurants returns approved restaurants.
// @Summary		List restaurants
// @Tags		Restaurants
// @Param		category_id	query	int		false	"Category"
// @Param		city		query	string	false	"City"
// @Param		limit		query	int		false	"Page size (default 20, max 100)"
// @Param		offset		query	int		false	"Offset"
// @Success		200	{object}	map[string]interface{}
// @Router		/restaurants [GET]
func (h *Handler) ListRestaurants(c *gin.Context) {
	var f repository.RestaurantFilters
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid category_id")
			return
		}
		f.CategoryID = &id
	}
	f.City = c.Query("city")
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))

	page, err := h.service.ListRestaurants(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rest, err := h.service.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rest)
}

// CreateRestaurant registers a restaurant pending admin approval.
// @Summary		Create restaurant
// @Tags		Restaurants
// @Security	BearerAuth
// @Param		request	body	CreateRestaurantRequest	true	"Restaurant"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Router		/restaurants [POST]
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req CreateRestaurantRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rest, err := h.service.CreateRestaurant(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rest)
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateRestaurantRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rest, err := h.service.UpdateRestaurant(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rest)
}

func (h *Handler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.service.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// SetApproval approves or hides a restaurant.
// @Summary		Approve restaurant
// @Tags		Admin
// @Security	BearerAuth
// @Param		id		path	int				true	"Restaurant ID"
// @Param		request	body	ApproveRequest	true	"approved flag"
// @Success		200	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Router		/admin/restaurants/{id}/approve [PUT]
func (h *Handler) SetApproval(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ApproveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rest, err := h.service.SetApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rest)
}

func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cats)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cat, err := h.service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cat)
}

func (h *Handler) ListDishes(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	dishes, err := h.service.ListDishes(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, dishes)
}

func (h *Handler) CreateDish(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CreateDishRequest
	if !bindAndValidate(c, &req) {
		return
	}
	d, err := h.service.CreateDish(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, d)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid restaurant ID")
		return 0, false
	}
	return id, true
}

func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case errors.Is(err, domain.ErrRestaurantNotFound):
		response.Error(c, http.StatusNotFound, "RESTAURANT_NOT_FOUND", "Restaurant not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		response.Error(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
	case errors.Is(err, ErrCategoryExists):
		response.Error(c, http.StatusConflict, "CATEGORY_EXISTS", "Category already exists")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}
