package review

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restoreview/internal/domain"
	"restoreview/internal/modules/rating"
	"restoreview/internal/pkg/response"
	"restoreview/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/restaurants/:id/reviews", h.ListByRestaurant)
		public.GET("/reviews/:id", h.Get)
	}

	if protected != nil {
		protected.POST("/restaurants/:id/reviews", h.Create)
		protected.PATCH("/reviews/:id", h.Update)
		protected.DELETE("/reviews/:id", h.Delete)
		protected.POST("/reviews/:id/reactions", h.AddReaction)
		protected.GET("/reviews/:id/reactions/me", h.GetMyReaction)
		protected.GET("/users/me/reviews", h.ListMine)
	}
}

// Create stores a review of an approved restaurant.
// @Summary		Write a review
// @Tags		Reviews
// @Security	BearerAuth
// @Param		id		path	int					true	"Restaurant ID"
// @Param		request	body	CreateReviewRequest	true	"Rating and comment"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{} "Restaurant not approved"
// @Failure		404	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{} "Already reviewed"
// @Failure		503	{object}	map[string]interface{} "Review saved, rating stale"
// @Router		/restaurants/{id}/reviews [POST]
func (h *Handler) Create(c *gin.Context) {
	restaurantID, ok := pathID(c, "Invalid restaurant ID")
	if !ok {
		return
	}

	var req CreateReviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	rv, err := h.svc.Create(c.Request.Context(), c.GetInt64("user_id"), restaurantID, req)
	if err != nil {
		writeError(c, err, rv)
		return
	}
	response.Success(c, http.StatusCreated, rv)
}

// Update edits the caller's own review.
// @Summary		Edit a review
// @Tags		Reviews
// @Security	BearerAuth
// @Param		id		path	int					true	"Review ID"
// @Param		request	body	UpdateReviewRequest	true	"Fields to change"
// @Success		200	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{} "Not the author"
// @Failure		404	{object}	map[string]interface{}
// @Router		/reviews/{id} [PATCH]
func (h *Handler) Update(c *gin.Context) {
	reviewID, ok := pathID(c, "Invalid review ID")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	rv, err := h.svc.Update(c.Request.Context(), reviewID, c.GetInt64("user_id"), req)
	if err != nil {
		writeError(c, err, rv)
		return
	}
	response.Success(c, http.StatusOK, rv)
}

// Delete removes a review. Admins may delete any review.
// @Summary		Delete a review
// @Tags		Reviews
// @Security	BearerAuth
// @Param		id	path	int	true	"Review ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Router		/reviews/{id} [DELETE]
func (h *Handler) Delete(c *gin.Context) {
	reviewID, ok := pathID(c, "Invalid review ID")
	if !ok {
		return
	}

	isAdmin := c.GetString("role") == string(domain.RoleAdmin)
	if err := h.svc.Delete(c.Request.Context(), reviewID, c.GetInt64("user_id"), isAdmin); err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// AddReaction toggles a like or dislike on someone else's review.
// @Summary		React to a review
// @Tags		Reviews
// @Security	BearerAuth
// @Param		id		path	int				true	"Review ID"
// @Param		request	body	ReactionRequest	true	"like or dislike"
// @Success		200	{object}	map[string]interface{} "Review with updated counters"
// @Failure		403	{object}	map[string]interface{} "Own review"
// @Failure		404	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{}
// @Router		/reviews/{id}/reactions [POST]
func (h *Handler) AddReaction(c *gin.Context) {
	reviewID, ok := pathID(c, "Invalid review ID")
	if !ok {
		return
	}

	var req ReactionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	rv, err := h.svc.AddReaction(c.Request.Context(), reviewID, c.GetInt64("user_id"), req.Type)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, rv)
}

func (h *Handler) GetMyReaction(c *gin.Context) {
	reviewID, ok := pathID(c, "Invalid review ID")
	if !ok {
		return
	}

	r, err := h.svc.GetUserReaction(c.Request.Context(), reviewID, c.GetInt64("user_id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Get(c *gin.Context) {
	reviewID, ok := pathID(c, "Invalid review ID")
	if !ok {
		return
	}

	rv, err := h.svc.Get(c.Request.Context(), reviewID)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, rv)
}

// ListByRestaurant returns a restaurant's reviews, newest first.
// @Summary		List restaurant reviews
// @Tags		Reviews
// @Param		id		path	int	true	"Restaurant ID"
// @Param		limit	query	int	false	"Page size (default 20, max 100)"
// @Param		offset	query	int	false	"Offset"
// @Success		200	{object}	map[string]interface{}
// @Router		/restaurants/{id}/reviews [GET]
func (h *Handler) ListByRestaurant(c *gin.Context) {
	restaurantID, ok := pathID(c, "Invalid restaurant ID")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.svc.ListByRestaurant(c.Request.Context(), restaurantID, limit, offset)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, page)
}

func (h *Handler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.svc.ListByUser(c.Request.Context(), c.GetInt64("user_id"), limit, offset)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, page)
}

func pathID(c *gin.Context, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", msg)
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

// writeError maps ledger errors to the response envelope. saved is the review
// that was persisted before an aggregation failure, if any.
func writeError(c *gin.Context, err error, saved *domain.Review) {
	var aggErr *rating.AggregationFailedError
	switch {
	case errors.As(err, &aggErr):
		details := gin.H{"restaurant_id": aggErr.RestaurantID}
		if saved != nil {
			details["review"] = saved
		}
		response.ErrorWithDetails(c, http.StatusServiceUnavailable, "AGGREGATION_FAILED",
			"Change saved but restaurant rating could not be refreshed", details)
	case errors.Is(err, domain.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid input")
	case errors.Is(err, domain.ErrRestaurantNotFound):
		response.Error(c, http.StatusNotFound, "RESTAURANT_NOT_FOUND", "Restaurant not found")
	case errors.Is(err, domain.ErrRestaurantNotApproved):
		response.Error(c, http.StatusForbidden, "RESTAURANT_NOT_APPROVED", "Restaurant is not approved for reviews")
	case errors.Is(err, domain.ErrDuplicateReview):
		response.Error(c, http.StatusConflict, "DUPLICATE_REVIEW", "You have already reviewed this restaurant")
	case errors.Is(err, domain.ErrReviewNotFound):
		response.Error(c, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found")
	case errors.Is(err, domain.ErrNotOwner):
		response.Error(c, http.StatusForbidden, "NOT_OWNER", "You can only change your own review")
	case errors.Is(err, domain.ErrSelfReaction):
		response.Error(c, http.StatusForbidden, "SELF_REACTION", "You cannot react to your own review")
	case errors.Is(err, domain.ErrReactionNotFound):
		response.Error(c, http.StatusNotFound, "REACTION_NOT_FOUND", "No reaction on this review")
	case errors.Is(err, domain.ErrReactionConflict):
		response.Error(c, http.StatusConflict, "REACTION_CONFLICT", "Concurrent reaction, retry")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}
