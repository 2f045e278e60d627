package rating

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restoreview/internal/domain"
	"restoreview/internal/pkg/response"
)

type Handler struct {
	board      *Leaderboard
	aggregator *Aggregator
}

func NewHandler(board *Leaderboard, aggregator *Aggregator) *Handler {
	return &Handler{board: board, aggregator: aggregator}
}

func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	if public != nil {
		public.GET("/restaurants/top", h.Top)
	}
	if admin != nil {
		admin.POST("/restaurants/:id/recompute", h.Recompute)
	}
}

// Top returns the leaderboard of approved restaurants.
// @Summary		Top restaurants
// @Tags		Ratings
// @Param		category_id	query	int	false	"Only this category"
// @Param		limit		query	int	false	"Board size (default from config, max 100)"
// @Success		200	{object}	map[string]interface{}
// @Router		/restaurants/top [GET]
func (h *Handler) Top(c *gin.Context) {
	var opts RankOptions
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid category_id")
			return
		}
		opts.CategoryID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid limit")
			return
		}
		opts.Limit = n
	}

	board, err := h.board.Top(c.Request.Context(), opts)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}
	response.Success(c, http.StatusOK, board)
}

// Recompute rebuilds one restaurant's aggregate from its reviews.
// @Summary		Recompute rating
// @Tags		Admin
// @Security	BearerAuth
// @Param		id	path	int	true	"Restaurant ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Failure		503	{object}	map[string]interface{}
// @Router		/admin/restaurants/{id}/recompute [POST]
func (h *Handler) Recompute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid restaurant ID")
		return
	}

	agg, err := h.aggregator.Recompute(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRestaurantNotFound) {
			response.Error(c, http.StatusNotFound, "RESTAURANT_NOT_FOUND", "Restaurant not found")
			return
		}
		response.Error(c, http.StatusServiceUnavailable, "AGGREGATION_FAILED", "Rating could not be recomputed")
		return
	}
	response.Success(c, http.StatusOK, agg)
}
