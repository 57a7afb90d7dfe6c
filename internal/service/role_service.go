package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/repository"
)

var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrRoleInUse         = errors.New("cannot delete role with assigned users")
)

type RoleService struct {
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
	revoker  SessionRevoker
}

func NewRoleService(roleRepo repository.RoleRepository, userRepo repository.UserRepository) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		userRepo: userRepo,
	}
}

func (s *RoleService) SetSessionRevoker(revoker SessionRevoker) {
	s.revoker = revoker
}

// CreateRole creates a role; names are unique.
func (s *RoleService) CreateRole(ctx context.Context, name, description string) (*domain.Role, error) {
	existing, err := s.roleRepo.GetByName(ctx, name)
	if err == nil && existing != nil {
		return nil, ErrRoleAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	role := &domain.Role{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *RoleService) GetRole(ctx context.Context, roleID uuid.UUID) (*domain.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

func (s *RoleService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.roleRepo.List(ctx)
}

func (s *RoleService) UpdateRole(ctx context.Context, roleID uuid.UUID, name, description string) error {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	role.Name = name
	role.Description = description
	role.UpdatedAt = time.Now()

	return s.roleRepo.Update(ctx, role)
}

// DeleteRole removes a role. Deletion is blocked while any user still
// holds the role.
func (s *RoleService) DeleteRole(ctx context.Context, roleID uuid.UUID) error {
	count, err := s.roleRepo.CountUsersWithRole(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleInUse
	}

	err = s.roleRepo.Delete(ctx, roleID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRoleNotFound
	}
	return err
}

// AssignRoleToUser grants a single role and invalidates the user's
// sessions so the new authority set takes effect on next login.
func (s *RoleService) AssignRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return ErrUserNotFound
	}
	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return ErrRoleNotFound
	}

	if err := s.roleRepo.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return err
	}

	s.revokeSessions(ctx, userID)
	return nil
}

func (s *RoleService) RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.roleRepo.RemoveRoleFromUser(ctx, userID, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	s.revokeSessions(ctx, userID)
	return nil
}

func (s *RoleService) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error) {
	return s.roleRepo.GetUserRoles(ctx, userID)
}

func (s *RoleService) GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*domain.Permission, error) {
	return s.roleRepo.GetRolePermissions(ctx, roleID)
}

func (s *RoleService) revokeSessions(ctx context.Context, userID uuid.UUID) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeAllByUser(ctx, userID); err != nil {
		log.Printf("[ROLE_SERVICE] failed to revoke sessions for user %s: %v", userID, err)
	}
}
