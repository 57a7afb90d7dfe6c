package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/repository"
)

type PermissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(ctx context.Context, permission *domain.Permission) error {
	query := `
		INSERT INTO permissions (id, resource, action, condition_expr, description, created_at)
		VALUES (:id, :resource, :action, :condition_expr, :description, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, permission)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	var permission domain.Permission
	query := `SELECT * FROM permissions WHERE id = $1`

	err := r.db.GetContext(ctx, &permission, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &permission, nil
}

func (r *PermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	var permissions []*domain.Permission
	query := `SELECT * FROM permissions ORDER BY resource, action`

	if err := r.db.SelectContext(ctx, &permissions, query); err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return permissions, nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM permissions WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// FindForUser collects every candidate permission for (resource, action)
// across the user's roles, distinct per condition so the engine can try
// each one.
func (r *PermissionRepository) FindForUser(ctx context.Context, userID uuid.UUID, resource, action string) ([]*domain.Permission, error) {
	var permissions []*domain.Permission
	query := `
		SELECT DISTINCT p.*
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1 AND p.resource = $2 AND p.action = $3
	`

	if err := r.db.SelectContext(ctx, &permissions, query, userID, resource, action); err != nil {
		return nil, fmt.Errorf("failed to find permissions for user: %w", err)
	}
	return permissions, nil
}
