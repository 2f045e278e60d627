package domain

import "time"

const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// Review is a user's rating of a restaurant. Likes and Dislikes mirror the
// reaction rows that reference the review.
type Review struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UserID       int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_reviews_user_restaurant,priority:1"`
	RestaurantID int64     `json:"restaurant_id" gorm:"not null;index;uniqueIndex:idx_reviews_user_restaurant,priority:2"`
	Rating       int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment      string    `json:"comment"`
	Likes        int       `json:"likes" gorm:"not null;default:0"`
	Dislikes     int       `json:"dislikes" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }

func ValidReviewRating(r int) bool {
	return r >= MinReviewRating && r <= MaxReviewRating
}
