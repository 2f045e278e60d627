package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"restoreview/internal/domain"
	"restoreview/internal/pkg/jwt"
	"restoreview/internal/pkg/response"
)

// JWTAuth validates the bearer token and puts user_id (int64) and role on
// the context.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

type RestaurantLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Restaurant, error)
}

// OwnershipChecker guards routes that act on a restaurant the caller owns.
type OwnershipChecker struct {
	restaurants RestaurantLookup
}

func NewOwnershipChecker(restaurants RestaurantLookup) *OwnershipChecker {
	return &OwnershipChecker{restaurants: restaurants}
}

// CheckRestaurantOwnership lets the owner or an admin through.
// Expects the restaurant ID in URL param "id".
func (oc *OwnershipChecker) CheckRestaurantOwnership() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		if userID == 0 {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}

		restaurantID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || restaurantID <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid restaurant ID")
			c.Abort()
			return
		}

		rest, err := oc.restaurants.GetByID(c.Request.Context(), restaurantID)
		if err != nil {
			if errors.Is(err, domain.ErrRestaurantNotFound) {
				response.Error(c, http.StatusNotFound, "RESTAURANT_NOT_FOUND", "Restaurant not found")
			} else {
				response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
			}
			c.Abort()
			return
		}

		if rest.OwnerID != userID && c.GetString("role") != string(domain.RoleAdmin) {
			response.Error(c, http.StatusForbidden, "NOT_OWNER", "You don't own this restaurant")
			c.Abort()
			return
		}

		c.Next()
	}
}
