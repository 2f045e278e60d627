package rating

import (
	"context"

	"go.uber.org/zap"

	"restoreview/internal/domain"
	"restoreview/internal/metrics"
)

const maxLeaderboardLimit = 100

type ApprovedLister interface {
	ListApproved(ctx context.Context, categoryID *int64) ([]domain.Restaurant, error)
}

// BoardCache stores ranked boards until the next aggregate change. Get
// reports the cache version it looked under; Set must store the board under
// that same version so a board computed before an invalidation is never
// served after it.
type BoardCache interface {
	Get(ctx context.Context, opts RankOptions) (board []Ranked, version int64, ok bool, err error)
	Set(ctx context.Context, opts RankOptions, version int64, board []Ranked) error
	Invalidate(ctx context.Context) error
}

type Leaderboard struct {
	restaurants  ApprovedLister
	cache        BoardCache
	defaultLimit int
	logger       *zap.Logger
}

// NewLeaderboard builds a leaderboard; cache may be nil.
func NewLeaderboard(restaurants ApprovedLister, cache BoardCache, defaultLimit int, logger *zap.Logger) *Leaderboard {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Leaderboard{
		restaurants:  restaurants,
		cache:        cache,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

func (l *Leaderboard) Top(ctx context.Context, opts RankOptions) ([]Ranked, error) {
	if opts.Limit <= 0 {
		opts.Limit = l.defaultLimit
	}
	if opts.Limit > maxLeaderboardLimit {
		opts.Limit = maxLeaderboardLimit
	}

	var (
		version   int64
		cacheable bool
	)
	if l.cache != nil {
		board, v, ok, err := l.cache.Get(ctx, opts)
		switch {
		case err != nil:
			metrics.LeaderboardCache.WithLabelValues("error").Inc()
			l.logger.Warn("leaderboard cache read failed", zap.Error(err))
		case ok:
			metrics.LeaderboardCache.WithLabelValues("hit").Inc()
			return board, nil
		default:
			metrics.LeaderboardCache.WithLabelValues("miss").Inc()
			version, cacheable = v, true
		}
	}

	restaurants, err := l.restaurants.ListApproved(ctx, opts.CategoryID)
	if err != nil {
		return nil, err
	}
	board := Rank(restaurants, opts)

	// Stored under the version read before loading; an invalidation in
	// between leaves it orphaned.
	if cacheable {
		if err := l.cache.Set(ctx, opts, version, board); err != nil {
			l.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

// AggregateChanged drops every cached board; any of them may now be stale.
func (l *Leaderboard) AggregateChanged(ctx context.Context, agg Aggregate) {
	l.invalidate(ctx, zap.Int64("restaurant_id", agg.RestaurantID))
}

// Invalidate drops cached boards after a change outside the aggregator,
// such as a restaurant being approved.
func (l *Leaderboard) Invalidate(ctx context.Context) {
	l.invalidate(ctx)
}

func (l *Leaderboard) invalidate(ctx context.Context, fields ...zap.Field) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx); err != nil {
		l.logger.Warn("leaderboard cache invalidation failed", append(fields, zap.Error(err))...)
	}
}
