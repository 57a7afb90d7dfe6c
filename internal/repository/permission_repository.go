package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
)

type PermissionRepository interface {
	Create(ctx context.Context, permission *domain.Permission) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error)
	List(ctx context.Context) ([]*domain.Permission, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// FindForUser returns every permission reachable through the user's
	// roles that matches (resource, action) exactly. Candidates with
	// different conditions are all returned; the caller unions them.
	FindForUser(ctx context.Context, userID uuid.UUID, resource, action string) ([]*domain.Permission, error)
}
