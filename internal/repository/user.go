package repository

import (
	"context"
	"errors"

	"account-service/internal/domain"
)

var (
	// ErrUserNotFound is returned when no user matches the given id or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a write would violate username uniqueness.
	ErrUsernameTaken = errors.New("username already taken")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}
