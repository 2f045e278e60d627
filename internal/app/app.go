package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"restoreview/internal/cache"
	"restoreview/internal/config"
	"restoreview/internal/database"
	"restoreview/internal/middleware"
	"restoreview/internal/modules/auth"
	"restoreview/internal/modules/catalog"
	"restoreview/internal/modules/feed"
	"restoreview/internal/modules/rating"
	"restoreview/internal/modules/review"
	jwtsvc "restoreview/internal/pkg/jwt"
	"restoreview/internal/pkg/response"
	"restoreview/internal/repository"
)

// App holds the dependency graph of the service.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client

	Router      *gin.Engine
	Hub         *feed.Hub
	Aggregator  *rating.Aggregator
	Leaderboard *rating.Leaderboard
	Reviews     *review.Service
	Catalog     *catalog.Service
	Auth        *auth.Service
	Tokens      *jwtsvc.Service
}

// New connects to the database (and Redis when configured) and builds the app.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database migrated")
	}

	var rdb *redis.Client
	if cfg.CacheEnabled() {
		rdb, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	}

	return Build(cfg, logger, db, rdb), nil
}

// Build wires repositories, services and routes on top of open connections.
// rdb may be nil, in which case the leaderboard is computed on every request.
func Build(cfg *config.Config, logger *zap.Logger, db *gorm.DB, rdb *redis.Client) *App {
	userRepo := repository.NewUserRepository(db)
	restaurantRepo := repository.NewRestaurantRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	dishRepo := repository.NewDishRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	var boardCache rating.BoardCache
	if rdb != nil {
		boardCache = cache.NewLeaderboardCache(rdb, cfg.LeaderboardTTL)
	}

	aggregator := rating.NewAggregator(reviewRepo, restaurantRepo, logger)
	leaderboard := rating.NewLeaderboard(restaurantRepo, boardCache, cfg.LeaderboardDefaultLimit, logger)
	hub := feed.NewHub(logger)
	aggregator.Subscribe(leaderboard)
	aggregator.Subscribe(hub)

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	authService := auth.NewService(userRepo, tokens, logger)
	catalogService := catalog.NewService(restaurantRepo, categoryRepo, dishRepo, leaderboard, logger)
	reviewService := review.NewService(reviewRepo, reactionRepo, restaurantRepo, aggregator, logger)

	a := &App{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		rdb:         rdb,
		Hub:         hub,
		Aggregator:  aggregator,
		Leaderboard: leaderboard,
		Reviews:     reviewService,
		Catalog:     catalogService,
		Auth:        authService,
		Tokens:      tokens,
	}

	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" || cfg.AppEnv == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestLogger(logger),
		middleware.Metrics(),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.GET("/healthz", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(tokens))
	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())

	ownerOnly := middleware.NewOwnershipChecker(restaurantRepo).CheckRestaurantOwnership()

	authHandler := auth.NewHandler(authService)
	authHandler.RegisterPublicRoutes(v1)
	authHandler.RegisterProtectedRoutes(protected)

	catalog.NewHandler(catalogService).RegisterRoutes(v1, protected, admin, ownerOnly)
	review.NewHandler(reviewService).RegisterRoutes(v1, protected)
	rating.NewHandler(leaderboard, aggregator).RegisterRoutes(v1, admin)
	hub.RegisterRoutes(v1)

	a.Router = r
	return a
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database is not reachable")
		return
	}
	if a.rdb != nil {
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			// the leaderboard falls back to the database without its cache
			response.Success(c, http.StatusOK, gin.H{"status": "degraded", "cache": "unavailable"})
			return
		}
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting http server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown
	a.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown", zap.Error(err))
	}
	return nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
