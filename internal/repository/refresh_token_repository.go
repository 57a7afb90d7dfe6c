package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error

	// Rotate revokes the old token and persists its replacement in one
	// transaction. It fails without inserting the replacement when the old
	// token was already revoked or is missing, so a rotation never leaves
	// two live tokens or zero.
	Rotate(ctx context.Context, oldID uuid.UUID, next *domain.RefreshToken) error

	// DeleteExpired prunes tokens whose lifetime elapsed; housekeeping only.
	DeleteExpired(ctx context.Context) (int64, error)
}
