package domain

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrRestaurantNotFound    = errors.New("restaurant not found")
	ErrRestaurantNotApproved = errors.New("restaurant is pending approval")
	ErrDuplicateReview       = errors.New("user already reviewed this restaurant")
	ErrReviewNotFound        = errors.New("review not found")
	ErrNotOwner              = errors.New("not the owner of this resource")
	ErrSelfReaction          = errors.New("cannot react to own review")
	ErrReactionNotFound      = errors.New("reaction not found")
	ErrReactionConflict      = errors.New("concurrent reaction on the same review")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrUserNotFound          = errors.New("user not found")
)
