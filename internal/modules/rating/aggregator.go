package rating

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"restoreview/internal/metrics"
	"restoreview/internal/repository"
)

// Aggregate is the derived rating state of one restaurant.
type Aggregate struct {
	RestaurantID int64     `json:"restaurant_id"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"review_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ReviewStatsReader interface {
	Stats(ctx context.Context, restaurantID int64) (repository.ReviewStats, error)
}

type AggregateStore interface {
	PersistAggregate(ctx context.Context, id int64, rating float64, reviewCount int, updatedAt time.Time) error
	ListIDs(ctx context.Context) ([]int64, error)
}

// Listener is told about every persisted aggregate.
type Listener interface {
	AggregateChanged(ctx context.Context, agg Aggregate)
}

// Aggregator is the only writer of a restaurant's rating and review count.
type Aggregator struct {
	reviews     ReviewStatsReader
	restaurants AggregateStore
	listeners   []Listener
	logger      *zap.Logger
	now         func() time.Time
}

func NewAggregator(reviews ReviewStatsReader, restaurants AggregateStore, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		reviews:     reviews,
		restaurants: restaurants,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers l. Not safe to call once the aggregator is serving.
func (a *Aggregator) Subscribe(l Listener) {
	a.listeners = append(a.listeners, l)
}

// Recompute rebuilds the aggregate from a full scan of the restaurant's
// reviews and persists it. Calling it repeatedly without intervening review
// changes yields the same result.
func (a *Aggregator) Recompute(ctx context.Context, restaurantID int64) (Aggregate, error) {
	start := time.Now()
	defer func() { metrics.RecomputeDuration.Observe(time.Since(start).Seconds()) }()

	stats, err := a.reviews.Stats(ctx, restaurantID)
	if err != nil {
		return Aggregate{}, a.fail(restaurantID, err)
	}

	agg := Aggregate{
		RestaurantID: restaurantID,
		Rating:       MeanRating(stats.Sum, stats.Count),
		ReviewCount:  int(stats.Count),
		UpdatedAt:    a.now(),
	}
	if err := a.restaurants.PersistAggregate(ctx, restaurantID, agg.Rating, agg.ReviewCount, agg.UpdatedAt); err != nil {
		return Aggregate{}, a.fail(restaurantID, err)
	}

	a.logger.Debug("rating recomputed",
		zap.Int64("restaurant_id", restaurantID),
		zap.Float64("rating", agg.Rating),
		zap.Int("review_count", agg.ReviewCount),
	)

	for _, l := range a.listeners {
		l.AggregateChanged(ctx, agg)
	}
	return agg, nil
}

// RecomputeAll heals every restaurant and returns how many were recomputed.
// It keeps going past individual failures and reports them together.
func (a *Aggregator) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := a.restaurants.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var (
		done int
		errs []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := a.Recompute(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func (a *Aggregator) fail(restaurantID int64, err error) error {
	metrics.RecomputeFailures.Inc()
	a.logger.Error("rating recompute failed",
		zap.Int64("restaurant_id", restaurantID),
		zap.Error(err),
	)
	return &AggregationFailedError{RestaurantID: restaurantID, Err: err}
}

// MeanRating is sum/count rounded half-up to one decimal place, or 0 when
// count is 0. Integer arithmetic keeps x.x5 boundaries exact.
func MeanRating(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	tenths := (20*sum + count) / (2 * count)
	return float64(tenths) / 10
}
