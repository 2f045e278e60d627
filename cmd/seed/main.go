package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"go.uber.org/zap"

	"restoreview/internal/app"
	"restoreview/internal/config"
	"restoreview/internal/database"
	"restoreview/internal/domain"
	"restoreview/internal/logging"
	"restoreview/internal/modules/auth"
	"restoreview/internal/modules/catalog"
	"restoreview/internal/modules/rating"
	"restoreview/internal/modules/review"
	"restoreview/internal/repository"
)

type seedRestaurant struct {
	name     string
	city     string
	address  string
	category string
	dishes   []catalog.CreateDishRequest
}

var restaurants = []seedRestaurant{
	{
		name: "Trattoria Nonna", city: "Almaty", address: "Abay Ave 12", category: "Italian",
		dishes: []catalog.CreateDishRequest{
			{Name: "Carbonara", Price: 4200},
			{Name: "Margherita", Price: 3500},
		},
	},
	{
		name: "Sakura", city: "Almaty", address: "Dostyk St 45", category: "Japanese",
		dishes: []catalog.CreateDishRequest{
			{Name: "Salmon nigiri", Price: 2800},
			{Name: "Tonkotsu ramen", Price: 3900},
		},
	},
	{
		name: "Dastarkhan", city: "Astana", address: "Kabanbay Batyr 8", category: "Kazakh",
		dishes: []catalog.CreateDishRequest{
			{Name: "Beshbarmak", Price: 4500},
			{Name: "Baursak", Price: 900},
		},
	},
	{
		name: "Pasta Bar", city: "Astana", address: "Turan Ave 20", category: "Italian",
		dishes: []catalog.CreateDishRequest{
			{Name: "Lasagna", Price: 3800},
		},
	},
}

var comments = []string{
	"",
	"Great food and friendly staff.",
	"Portions could be bigger.",
	"Would come back.",
	"Slow service on a weekend evening.",
}

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
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	// Cleanup old data in dependency order.
	logger.Info("cleaning old data")
	for _, table := range []string{"reactions", "reviews", "dishes", "restaurants", "categories", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			logger.Fatal("cleanup failed", zap.String("table", table), zap.Error(err))
		}
	}

	ctx := context.Background()
	// Services are built without a cache; the leaderboard is computed on read.
	a := app.Build(cfg, logger, db, nil)
	users := repository.NewUserRepository(db)

	// ================== USERS ==================
	mustUser := func(email, name, password string, role domain.UserRole) *domain.User {
		hash, err := auth.HashPassword(password, 0)
		if err != nil {
			logger.Fatal("hash password", zap.Error(err))
		}
		u := &domain.User{Email: email, Name: name, PasswordHash: hash, Role: role}
		if err := users.Create(ctx, u); err != nil {
			logger.Fatal("create user", zap.String("email", email), zap.Error(err))
		}
		return u
	}

	mustUser("admin@restoreview.local", "Admin", "admin123", domain.RoleAdmin)
	owner := mustUser("owner@restoreview.local", "Owner", "owner123", domain.RoleUser)
	reviewers := make([]*domain.User, 0, 12)
	for i := 1; i <= 12; i++ {
		reviewers = append(reviewers, mustUser(
			fmt.Sprintf("guest%02d@restoreview.local", i),
			fmt.Sprintf("Guest %d", i),
			"guest123",
			domain.RoleUser,
		))
	}
	logger.Info("users created", zap.Int("reviewers", len(reviewers)))

	// ================== CATALOG ==================
	categories := map[string]int64{}
	for _, r := range restaurants {
		if _, ok := categories[r.category]; ok {
			continue
		}
		cat, err := a.Catalog.CreateCategory(ctx, catalog.CreateCategoryRequest{Name: r.category})
		if err != nil {
			logger.Fatal("create category", zap.String("name", r.category), zap.Error(err))
		}
		categories[r.category] = cat.ID
	}

	rng := rand.New(rand.NewSource(42))
	for i, r := range restaurants {
		catID := categories[r.category]
		rest, err := a.Catalog.CreateRestaurant(ctx, owner.ID, catalog.CreateRestaurantRequest{
			Name:       r.name,
			Address:    r.address,
			City:       r.city,
			CategoryID: &catID,
		})
		if err != nil {
			logger.Fatal("create restaurant", zap.String("name", r.name), zap.Error(err))
		}
		if _, err := a.Catalog.SetApproval(ctx, rest.ID, true); err != nil {
			logger.Fatal("approve restaurant", zap.Int64("restaurant_id", rest.ID), zap.Error(err))
		}
		for _, d := range r.dishes {
			if _, err := a.Catalog.CreateDish(ctx, rest.ID, d); err != nil {
				logger.Fatal("create dish", zap.String("name", d.Name), zap.Error(err))
			}
		}

		// ================== REVIEWS ==================
		// Going through the ledger keeps every aggregate consistent.
		n := 2 + i*3
		if n > len(reviewers) {
			n = len(reviewers)
		}
		var first *domain.Review
		for _, u := range reviewers[:n] {
			rv, err := a.Reviews.Create(ctx, u.ID, rest.ID, review.CreateReviewRequest{
				Rating:  3 + rng.Intn(3),
				Comment: comments[rng.Intn(len(comments))],
			})
			if err != nil {
				logger.Fatal("create review", zap.Int64("restaurant_id", rest.ID), zap.Error(err))
			}
			if first == nil {
				first = rv
			}
		}
		for _, u := range reviewers[1:n] {
			kind := domain.ReactionLike
			if rng.Intn(4) == 0 {
				kind = domain.ReactionDislike
			}
			if _, err := a.Reviews.AddReaction(ctx, first.ID, u.ID, kind); err != nil {
				logger.Fatal("add reaction", zap.Int64("review_id", first.ID), zap.Error(err))
			}
		}
	}

	board, err := a.Leaderboard.Top(ctx, rating.RankOptions{})
	if err != nil {
		logger.Fatal("leaderboard", zap.Error(err))
	}
	for i, r := range board {
		logger.Info("leaderboard",
			zap.Int("position", i+1),
			zap.String("name", r.Name),
			zap.Float64("rating", r.Rating),
			zap.Int("review_count", r.ReviewCount),
			zap.Float64("weighted_score", r.WeightedScore),
		)
	}
	logger.Info("seed completed")
}
