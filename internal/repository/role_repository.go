package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
)

type RoleRepository interface {
	// Role CRUD
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int, error)

	// User-role assignments
	AssignRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error)
	GetUsersWithRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)

	// Role-permission assignments
	AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*domain.Permission, error)
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]*domain.Permission, error)
}
