package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"restoreview/internal/modules/rating"
)

const (
	leaderboardPrefix = "leaderboard:"
	generationKey     = leaderboardPrefix + "gen"
)

// LeaderboardCache stores ranked boards in Redis. Boards are keyed by a
// generation counter, so one INCR invalidates every board at once and the
// orphaned keys age out through their TTL.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

// Get looks the board up under the current generation and returns that
// generation for a later Set.
func (c *LeaderboardCache) Get(ctx context.Context, opts rating.RankOptions) ([]rating.Ranked, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.client.Get(ctx, key(gen, opts)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, gen, false, fmt.Errorf("redis get leaderboard: %w", err)
	}

	var board []rating.Ranked
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, gen, false, fmt.Errorf("unmarshal leaderboard: %w", err)
	}
	return board, gen, true, nil
}

// Set stores board under generation gen. A board computed before an
// invalidation lands under a generation no reader uses and ages out.
func (c *LeaderboardCache) Set(ctx context.Context, opts rating.RankOptions, gen int64, board []rating.Ranked) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, key(gen, opts), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set leaderboard: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr leaderboard generation: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get leaderboard generation: %w", err)
	}
	return gen, nil
}

func key(gen int64, opts rating.RankOptions) string {
	scope := "all"
	if opts.CategoryID != nil {
		scope = strconv.FormatInt(*opts.CategoryID, 10)
	}
	return fmt.Sprintf("%sv%d:%s:%d", leaderboardPrefix, gen, scope, opts.Limit)
}
