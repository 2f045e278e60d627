// Command reconcile recomputes every restaurant's rating and review count
// from its reviews. Run it after manual data fixes or from a cron job.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"restoreview/internal/cache"
	"restoreview/internal/config"
	"restoreview/internal/database"
	"restoreview/internal/logging"
	"restoreview/internal/modules/rating"
	"restoreview/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aggregator := rating.NewAggregator(
		repository.NewReviewRepository(db),
		repository.NewRestaurantRepository(db),
		logger,
	)

	n, err := aggregator.RecomputeAll(ctx)
	if err != nil {
		logger.Fatal("reconcile failed", zap.Int("recomputed", n), zap.Error(err))
	}
	logger.Info("reconcile completed", zap.Int("recomputed", n))

	if !cfg.CacheEnabled() {
		return
	}
	rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("leaderboard cache not invalidated", zap.Error(err))
		return
	}
	defer rdb.Close()
	if err := cache.NewLeaderboardCache(rdb, cfg.LeaderboardTTL).Invalidate(ctx); err != nil {
		logger.Warn("leaderboard cache not invalidated", zap.Error(err))
	}
}
