package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restoreview/internal/config"
	"restoreview/internal/database/databasetest"
	"restoreview/internal/domain"
	"restoreview/internal/modules/auth"
	"restoreview/internal/repository"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorDetail    `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

type suite struct {
	t   *testing.T
	app *App
	mr  *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		HTTPPort:                8080,
		JWTSecret:               "test-secret",
		JWTTTL:                  time.Hour,
		ShutdownTimeout:         time.Second,
		LeaderboardTTL:          time.Minute,
		LeaderboardDefaultLimit: 10,
	}
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db := databasetest.Open(t)
	return &suite{t: t, app: Build(testConfig(), zap.NewNop(), db, rdb), mr: mr}
}

func (s *suite) do(method, path, token string, body any) (int, testResponse) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rr, req)

	var resp testResponse
	if rr.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	}
	return rr.Code, resp
}

func (s *suite) decode(resp testResponse, v any) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(resp.Data, v))
}

func (s *suite) register(name, email string) (int64, string) {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(s.t, http.StatusCreated, code)

	var res auth.AuthResult
	s.decode(resp, &res)
	return res.User.ID, res.Token
}

func (s *suite) adminToken() string {
	s.t.Helper()
	hash, err := auth.HashPassword("admin-password", 4)
	require.NoError(s.t, err)
	users := repository.NewUserRepository(s.app.db)
	require.NoError(s.t, users.Create(context.Background(), &domain.User{
		Email: "admin@example.com", PasswordHash: hash, Name: "Admin", Role: domain.RoleAdmin,
	}))

	code, resp := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "admin@example.com", "password": "admin-password",
	})
	require.Equal(s.t, http.StatusOK, code)
	var res auth.AuthResult
	s.decode(resp, &res)
	return res.Token
}

func (s *suite) restaurant(id int64) domain.Restaurant {
	s.t.Helper()
	code, resp := s.do(http.MethodGet, fmt.Sprintf("/api/v1/restaurants/%d", id), "", nil)
	require.Equal(s.t, http.StatusOK, code)
	var rest domain.Restaurant
	s.decode(resp, &rest)
	return rest
}

func TestReviewLifecycle(t *testing.T) {
	s := setupSuite(t)

	_, ownerToken := s.register("Owner", "owner@example.com")
	aliceID, aliceToken := s.register("Alice", "alice@example.com")
	_, bobToken := s.register("Bob", "bob@example.com")
	adminToken := s.adminToken()

	code, resp := s.do(http.MethodPost, "/api/v1/admin/categories", adminToken, gin.H{"name": "Italian"})
	require.Equal(t, http.StatusCreated, code)
	var cat domain.Category
	s.decode(resp, &cat)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/categories", aliceToken, gin.H{"name": "Thai"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPost, "/api/v1/restaurants", ownerToken, gin.H{
		"name": "Trattoria", "address": "1 Main St", "city": "Almaty", "category_id": cat.ID,
	})
	require.Equal(t, http.StatusCreated, code)
	var rest domain.Restaurant
	s.decode(resp, &rest)
	assert.False(t, rest.Approved)

	reviewPath := fmt.Sprintf("/api/v1/restaurants/%d/reviews", rest.ID)

	t.Run("pending restaurant is closed to reviews", func(t *testing.T) {
		code, resp := s.do(http.MethodPost, reviewPath, aliceToken, gin.H{"rating": 5})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "RESTAURANT_NOT_APPROVED", resp.Error.Code)
	})

	code, _ = s.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/restaurants/%d/approve", rest.ID), adminToken, gin.H{"approved": true})
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodPost, reviewPath, aliceToken, gin.H{"rating": 5, "comment": "Great pasta"})
	require.Equal(t, http.StatusCreated, code)
	var aliceReview domain.Review
	s.decode(resp, &aliceReview)
	assert.Equal(t, aliceID, aliceReview.UserID)

	code, _ = s.do(http.MethodPost, reviewPath, bobToken, gin.H{"rating": 4})
	require.Equal(t, http.StatusCreated, code)

	got := s.restaurant(rest.ID)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.ReviewCount)

	t.Run("second review by the same user is rejected", func(t *testing.T) {
		code, resp := s.do(http.MethodPost, reviewPath, aliceToken, gin.H{"rating": 1})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "DUPLICATE_REVIEW", resp.Error.Code)
	})

	reactPath := fmt.Sprintf("/api/v1/reviews/%d/reactions", aliceReview.ID)

	t.Run("reactions toggle", func(t *testing.T) {
		code, resp := s.do(http.MethodPost, reactPath, bobToken, gin.H{"type": "like"})
		require.Equal(t, http.StatusOK, code)
		var rv domain.Review
		s.decode(resp, &rv)
		assert.Equal(t, 1, rv.Likes)

		code, resp = s.do(http.MethodPost, reactPath, bobToken, gin.H{"type": "dislike"})
		require.Equal(t, http.StatusOK, code)
		s.decode(resp, &rv)
		assert.Equal(t, 0, rv.Likes)
		assert.Equal(t, 1, rv.Dislikes)

		code, resp = s.do(http.MethodPost, reactPath, bobToken, gin.H{"type": "dislike"})
		require.Equal(t, http.StatusOK, code)
		s.decode(resp, &rv)
		assert.Equal(t, 0, rv.Dislikes)

		code, resp = s.do(http.MethodPost, reactPath, aliceToken, gin.H{"type": "like"})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "SELF_REACTION", resp.Error.Code)
	})

	t.Run("leaderboard follows rating changes", func(t *testing.T) {
		code, resp := s.do(http.MethodGet, "/api/v1/restaurants/top", "", nil)
		require.Equal(t, http.StatusOK, code)
		var board []struct {
			ID            int64   `json:"id"`
			Rating        float64 `json:"rating"`
			WeightedScore float64 `json:"weighted_score"`
		}
		s.decode(resp, &board)
		require.Len(t, board, 1)
		assert.Equal(t, 4.5, board[0].Rating)
		assert.Len(t, s.mr.Keys(), 2, "board and generation keys")

		code, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/reviews/%d", aliceReview.ID), aliceToken, gin.H{"rating": 3})
		require.Equal(t, http.StatusOK, code)

		code, resp = s.do(http.MethodGet, "/api/v1/restaurants/top", "", nil)
		require.Equal(t, http.StatusOK, code)
		s.decode(resp, &board)
		require.Len(t, board, 1)
		assert.Equal(t, 3.5, board[0].Rating)
	})

	t.Run("deleting a review recomputes", func(t *testing.T) {
		code, _ := s.do(http.MethodDelete, fmt.Sprintf("/api/v1/reviews/%d", aliceReview.ID), bobToken, nil)
		assert.Equal(t, http.StatusForbidden, code)

		code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/reviews/%d", aliceReview.ID), aliceToken, nil)
		require.Equal(t, http.StatusOK, code)

		got := s.restaurant(rest.ID)
		assert.Equal(t, 4.0, got.Rating)
		assert.Equal(t, 1, got.ReviewCount)
	})

	t.Run("admin recompute", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/admin/restaurants/%d/recompute", rest.ID)
		code, _ := s.do(http.MethodPost, path, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, code)

		code, resp := s.do(http.MethodPost, path, adminToken, nil)
		require.Equal(t, http.StatusOK, code)
		var agg struct {
			Rating      float64 `json:"rating"`
			ReviewCount int     `json:"review_count"`
		}
		s.decode(resp, &agg)
		assert.Equal(t, 4.0, agg.Rating)
		assert.Equal(t, 1, agg.ReviewCount)
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupSuite(t)

	code, resp := s.do(http.MethodPost, "/api/v1/restaurants/1/reviews", "", gin.H{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_HEADER_MISSING", resp.Error.Code)

	code, resp = s.do(http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_TOKEN", resp.Error.Code)
}

func TestHealthz(t *testing.T) {
	s := setupSuite(t)

	code, resp := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))

	s.mr.Close()
	code, resp = s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"degraded","cache":"unavailable"}`, string(resp.Data))
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupSuite(t)
	s.do(http.MethodGet, "/healthz", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}
