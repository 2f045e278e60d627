package review

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"restoreview/internal/domain"
	"restoreview/internal/metrics"
	"restoreview/internal/modules/rating"
	"restoreview/internal/repository"
)

type RestaurantGate interface {
	GetByID(ctx context.Context, id int64) (*domain.Restaurant, error)
}

type Recomputer interface {
	Recompute(ctx context.Context, restaurantID int64) (rating.Aggregate, error)
}

// Service is the review ledger. Every mutation that can move a restaurant's
// rating recomputes it before returning.
type Service struct {
	reviews     *repository.ReviewRepository
	reactions   *repository.ReactionRepository
	restaurants RestaurantGate
	aggregator  Recomputer
	logger      *zap.Logger
}

func NewService(
	reviews *repository.ReviewRepository,
	reactions *repository.ReactionRepository,
	restaurants RestaurantGate,
	aggregator Recomputer,
	logger *zap.Logger,
) *Service {
	return &Service{
		reviews:     reviews,
		reactions:   reactions,
		restaurants: restaurants,
		aggregator:  aggregator,
		logger:      logger,
	}
}

// Create stores the user's review of an approved restaurant. When the review
// is stored but the rating recompute fails, both the review and a
// *rating.AggregationFailedError are returned.
func (s *Service) Create(ctx context.Context, userID, restaurantID int64, req CreateReviewRequest) (*domain.Review, error) {
	if userID <= 0 || restaurantID <= 0 || !domain.ValidReviewRating(req.Rating) {
		return nil, domain.ErrInvalidRequest
	}

	rest, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if !rest.Approved {
		return nil, domain.ErrRestaurantNotApproved
	}

	exists, err := s.reviews.ExistsByUserAndRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateReview
	}

	rv := &domain.Review{
		UserID:       userID,
		RestaurantID: restaurantID,
		Rating:       req.Rating,
		Comment:      req.Comment,
	}
	// the unique index still catches a concurrent duplicate
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}

	metrics.ReviewMutations.WithLabelValues("create").Inc()
	s.logger.Info("review created",
		zap.Int64("review_id", rv.ID),
		zap.Int64("restaurant_id", restaurantID),
		zap.Int64("user_id", userID),
		zap.Int("rating", rv.Rating),
	)

	if _, err := s.aggregator.Recompute(ctx, restaurantID); err != nil {
		return rv, err
	}
	return rv, nil
}

// Update edits a review on behalf of its author. Only a rating change
// triggers a recompute.
func (s *Service) Update(ctx context.Context, reviewID, editorID int64, req UpdateReviewRequest) (*domain.Review, error) {
	if reviewID <= 0 || editorID <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	if req.Rating == nil && req.Comment == nil {
		return nil, domain.ErrInvalidRequest
	}
	if req.Rating != nil && !domain.ValidReviewRating(*req.Rating) {
		return nil, domain.ErrInvalidRequest
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.Comment != nil {
		updates["comment"] = *req.Comment
	}

	n, err := s.reviews.UpdateOwned(ctx, reviewID, editorID, updates)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := s.reviews.GetByID(ctx, reviewID); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotOwner
	}

	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	metrics.ReviewMutations.WithLabelValues("update").Inc()
	s.logger.Info("review updated",
		zap.Int64("review_id", rv.ID),
		zap.Int64("restaurant_id", rv.RestaurantID),
		zap.Bool("rating_changed", req.Rating != nil),
	)

	if req.Rating != nil {
		if _, err := s.aggregator.Recompute(ctx, rv.RestaurantID); err != nil {
			return rv, err
		}
	}
	return rv, nil
}

// Delete removes a review and every reaction to it in one transaction, then
// recomputes the restaurant's rating. Admins may delete any review.
func (s *Service) Delete(ctx context.Context, reviewID, requesterID int64, isAdmin bool) error {
	if reviewID <= 0 {
		return domain.ErrInvalidRequest
	}

	var restaurantID int64
	err := s.reviews.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := s.reviews.WithTx(tx)

		rv, err := reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if rv.UserID != requesterID && !isAdmin {
			return domain.ErrNotOwner
		}

		if _, err := s.reactions.WithTx(tx).DeleteByReview(ctx, reviewID); err != nil {
			return err
		}
		if err := reviews.Delete(ctx, reviewID); err != nil {
			return err
		}
		restaurantID = rv.RestaurantID
		return nil
	})
	if err != nil {
		return err
	}

	metrics.ReviewMutations.WithLabelValues("delete").Inc()
	s.logger.Info("review deleted",
		zap.Int64("review_id", reviewID),
		zap.Int64("restaurant_id", restaurantID),
		zap.Int64("requester_id", requesterID),
		zap.Bool("admin", isAdmin),
	)

	_, err = s.aggregator.Recompute(ctx, restaurantID)
	return err
}

// AddReaction toggles the user's like/dislike on a review and returns the
// review with its updated counters. The reaction row and the counters change
// in the same transaction.
func (s *Service) AddReaction(ctx context.Context, reviewID, userID int64, t domain.ReactionType) (*domain.Review, error) {
	if reviewID <= 0 || userID <= 0 || !t.Valid() {
		return nil, domain.ErrInvalidRequest
	}

	var (
		out    *domain.Review
		change domain.ReactionChange
	)
	err := s.reviews.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := s.reviews.WithTx(tx)
		reactions := s.reactions.WithTx(tx)

		rv, err := reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if rv.UserID == userID {
			return domain.ErrSelfReaction
		}

		existing, err := reactions.Get(ctx, reviewID, userID)
		if err != nil && !errors.Is(err, domain.ErrReactionNotFound) {
			return err
		}

		current := domain.ReactionNone
		if existing != nil {
			current = existing.Type
		}
		change = domain.NextReaction(current, t)

		switch {
		case existing == nil:
			err = reactions.Create(ctx, &domain.Reaction{ReviewID: reviewID, UserID: userID, Type: change.Next})
		case change.Next == domain.ReactionNone:
			err = reactions.Delete(ctx, existing.ID)
		default:
			err = reactions.UpdateType(ctx, existing.ID, change.Next)
		}
		if err != nil {
			return err
		}

		if err := reviews.AdjustCounters(ctx, reviewID, change.LikesDelta, change.DislikesDelta); err != nil {
			return err
		}

		out, err = reviews.GetByID(ctx, reviewID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Reactions.WithLabelValues(reactionOutcome(change)).Inc()
	s.logger.Info("review reaction toggled",
		zap.Int64("review_id", reviewID),
		zap.Int64("user_id", userID),
		zap.String("state", string(change.Next)),
	)
	return out, nil
}

func reactionOutcome(ch domain.ReactionChange) string {
	switch {
	case ch.Next == domain.ReactionNone:
		return "removed"
	case ch.LikesDelta != 0 && ch.DislikesDelta != 0:
		return "switched"
	default:
		return "added"
	}
}

func (s *Service) GetUserReaction(ctx context.Context, reviewID, userID int64) (*domain.Reaction, error) {
	if reviewID <= 0 || userID <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	return s.reactions.Get(ctx, reviewID, userID)
}

func (s *Service) Get(ctx context.Context, reviewID int64) (*domain.Review, error) {
	if reviewID <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	return s.reviews.GetByID(ctx, reviewID)
}

func (s *Service) ListByRestaurant(ctx context.Context, restaurantID int64, limit, offset int) (*ReviewPage, error) {
	if restaurantID <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	items, total, err := s.reviews.ListByRestaurant(ctx, restaurantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return newPage(items, total, limit, offset), nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit, offset int) (*ReviewPage, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	items, total, err := s.reviews.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return newPage(items, total, limit, offset), nil
}

func newPage(items []domain.Review, total int64, limit, offset int) *ReviewPage {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if items == nil {
		items = []domain.Review{}
	}
	return &ReviewPage{Items: items, Total: total, Limit: limit, Offset: offset}
}
