package review

import "restoreview/internal/domain"

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

// UpdateReviewRequest is a partial update; nil fields are left untouched.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type ReactionRequest struct {
	Type domain.ReactionType `json:"type" validate:"required,oneof=like dislike"`
}

type ReviewPage struct {
	Items  []domain.Review `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
