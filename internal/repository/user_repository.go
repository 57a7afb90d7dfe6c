package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error

	// Failed-attempt bookkeeping. IncrementFailedAttempts is an atomic
	// read-modify-write returning the new counter value, so concurrent
	// failures for the same account cannot race past the lock threshold.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
	// Lock flips the account to locked only while the counter is still at
	// or above threshold; returns whether a transition happened.
	Lock(ctx context.Context, id uuid.UUID, threshold int) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}
