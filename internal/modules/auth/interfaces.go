package auth

import (
	"context"

	"restoreview/internal/domain"
)

// UserRepositoryInterface is the part of the user store the auth service uses.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type tokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
}
