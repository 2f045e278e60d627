package review

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func setupTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	h := NewHandler(f.svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(func(c *gin.Context) {
		uid, err := strconv.ParseInt(c.GetHeader("X-Test-User-ID"), 10, 64)
		if err != nil || uid == 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("user_id", uid)
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			role = "user"
		}
		c.Set("role", role)
		c.Next()
	})
	h.RegisterRoutes(v1, protected)
	return r, f
}

func doJSONRequest(r http.Handler, method, path string, body any, userID int64) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User-ID", strconv.FormatInt(userID, 10))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func reviewsPath(restaurantID int64) string {
	return "/api/v1/restaurants/" + strconv.FormatInt(restaurantID, 10) + "/reviews"
}

func TestHandler_CreateAndList(t *testing.T) {
	r, f := setupTestRouter(t)
	rid := f.restaurant(t, true)

	rr, env := doJSONRequest(r, http.MethodPost, reviewsPath(rid), map[string]any{"rating": 4, "comment": "great plov"}, 10)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, env.Success)

	rr, env = doJSONRequest(r, http.MethodPost, reviewsPath(rid), map[string]any{"rating": 2}, 10)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "DUPLICATE_REVIEW", env.Error.Code)

	rr, env = doJSONRequest(r, http.MethodGet, reviewsPath(rid), nil, 0)
	require.Equal(t, http.StatusOK, rr.Code)
	var page ReviewPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "great plov", page.Items[0].Comment)
}

func TestHandler_CreateValidation(t *testing.T) {
	r, f := setupTestRouter(t)
	rid := f.restaurant(t, true)
	pending := f.restaurant(t, false)

	cases := []struct {
		name string
		path string
		body any
		code int
		err  string
	}{
		{"rating too high", reviewsPath(rid), map[string]any{"rating": 6}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing rating", reviewsPath(rid), map[string]any{"comment": "hi"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad id", "/api/v1/restaurants/x/reviews", map[string]any{"rating": 3}, http.StatusBadRequest, "INVALID_ID"},
		{"unknown restaurant", reviewsPath(9999), map[string]any{"rating": 3}, http.StatusNotFound, "RESTAURANT_NOT_FOUND"},
		{"pending restaurant", reviewsPath(pending), map[string]any{"rating": 3}, http.StatusForbidden, "RESTAURANT_NOT_APPROVED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := doJSONRequest(r, http.MethodPost, tc.path, tc.body, 10)
			assert.Equal(t, tc.code, rr.Code)
			assert.Equal(t, tc.err, env.Error.Code)
		})
	}
}

func TestHandler_Unauthorized(t *testing.T) {
	r, f := setupTestRouter(t)
	rid := f.restaurant(t, true)

	rr, _ := doJSONRequest(r, http.MethodPost, reviewsPath(rid), map[string]any{"rating": 4}, 0)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = doJSONRequest(r, http.MethodGet, "/api/v1/users/me/reviews", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_UpdateDeleteReact(t *testing.T) {
	r, f := setupTestRouter(t)
	rid := f.restaurant(t, true)
	rv := f.review(t, 10, rid, 3)
	path := "/api/v1/reviews/" + strconv.FormatInt(rv.ID, 10)

	rr, env := doJSONRequest(r, http.MethodPatch, path, map[string]any{"rating": 5}, 11)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "NOT_OWNER", env.Error.Code)

	rr, _ = doJSONRequest(r, http.MethodPatch, path, map[string]any{"rating": 5}, 10)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5.0, f.stored(t, rid).Rating)

	rr, env = doJSONRequest(r, http.MethodPost, path+"/reactions", map[string]any{"type": "like"}, 10)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "SELF_REACTION", env.Error.Code)

	rr, env = doJSONRequest(r, http.MethodPost, path+"/reactions", map[string]any{"type": "meh"}, 20)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rr, env = doJSONRequest(r, http.MethodPost, path+"/reactions", map[string]any{"type": "like"}, 20)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Likes int `json:"likes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.Likes)

	rr, _ = doJSONRequest(r, http.MethodGet, path+"/reactions/me", nil, 20)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, env = doJSONRequest(r, http.MethodGet, path+"/reactions/me", nil, 21)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "REACTION_NOT_FOUND", env.Error.Code)

	rr, _ = doJSONRequest(r, http.MethodDelete, path, nil, 10)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = doJSONRequest(r, http.MethodGet, path, nil, 0)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "REVIEW_NOT_FOUND", env.Error.Code)
	assert.Zero(t, f.stored(t, rid).ReviewCount)
}

func TestHandler_AggregationFailureIs503(t *testing.T) {
	r, f := setupTestRouter(t)
	rid := f.restaurant(t, true)
	f.svc.aggregator = brokenRecomputer{}

	rr, env := doJSONRequest(r, http.MethodPost, reviewsPath(rid), map[string]any{"rating": 4}, 10)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "AGGREGATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "review")
}
