package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/repository"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/condition"
)

var (
	ErrPermissionNotFound = errors.New("permission not found")
	ErrInvalidCondition   = errors.New("invalid condition expression")
)

// SessionRevoker invalidates a user's sessions after their authority set
// changed. Implemented by AuthService; wired via setter to break the
// service construction cycle.
type SessionRevoker interface {
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error
}

// PermissionService is the authorization decision point: it resolves
// whether a user may perform an action on a resource under the given
// request attributes.
type PermissionService struct {
	permRepo  repository.PermissionRepository
	roleRepo  repository.RoleRepository
	userRepo  repository.UserRepository
	evaluator *condition.Evaluator
	revoker   SessionRevoker
}

func NewPermissionService(
	permRepo repository.PermissionRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	evaluator *condition.Evaluator,
) *PermissionService {
	return &PermissionService{
		permRepo:  permRepo,
		roleRepo:  roleRepo,
		userRepo:  userRepo,
		evaluator: evaluator,
	}
}

// SetSessionRevoker wires the session invalidation hook used after
// assignment changes.
func (s *PermissionService) SetSessionRevoker(revoker SessionRevoker) {
	s.revoker = revoker
}

// CheckPermission answers "may user perform action on resource given
// these attributes?". It is fail-closed and never returns an error: an
// unknown user, a repository failure or a broken condition all deny. The
// first candidate whose condition holds (or that has no condition)
// grants.
func (s *PermissionService) CheckPermission(ctx context.Context, userID uuid.UUID, resource, action string, attrs map[string]any) bool {
	candidates, err := s.permRepo.FindForUser(ctx, userID, resource, action)
	if err != nil {
		log.Printf("[PERMISSION_SERVICE] candidate lookup failed for %s on %s:%s: %v", userID, resource, action, err)
		return false
	}

	for _, candidate := range candidates {
		if s.evaluator.Evaluate(ctx, candidate.ConditionExpr(), attrs) {
			return true
		}
	}
	return false
}

// CheckPermissionByUsername resolves the username first; unknown
// usernames deny. Used by the HTTP layer, where the token subject is the
// username.
func (s *PermissionService) CheckPermissionByUsername(ctx context.Context, username, resource, action string, attrs map[string]any) bool {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return false
	}
	return s.CheckPermission(ctx, user.ID, resource, action, attrs)
}

type CreatePermissionRequest struct {
	Resource    string  `json:"resource" validate:"required,min=2,max=100"`
	Action      string  `json:"action" validate:"required,min=2,max=50"`
	Condition   *string `json:"condition,omitempty"`
	Description string  `json:"description" validate:"max=500"`
}

// CreatePermission persists a permission. A present condition must
// compile; storing an unparseable rule would make every later check
// silently deny.
func (s *PermissionService) CreatePermission(ctx context.Context, req CreatePermissionRequest) (*domain.Permission, error) {
	if req.Condition != nil {
		if err := s.evaluator.Check(*req.Condition); err != nil {
			return nil, ErrInvalidCondition
		}
	}

	permission := &domain.Permission{
		ID:          uuid.New(),
		Resource:    req.Resource,
		Action:      req.Action,
		Condition:   req.Condition,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}

	if err := s.permRepo.Create(ctx, permission); err != nil {
		return nil, err
	}
	return permission, nil
}

// ListPermissions returns every permission.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	return s.permRepo.List(ctx)
}

// AssignPermissions attaches permissions to a role and invalidates the
// sessions of every user holding that role so stale claims die early.
func (s *PermissionService) AssignPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	for _, permissionID := range permissionIDs {
		if _, err := s.permRepo.GetByID(ctx, permissionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPermissionNotFound
			}
			return err
		}
		if err := s.roleRepo.AssignPermissionToRole(ctx, roleID, permissionID); err != nil {
			return err
		}
	}

	s.revokeRoleSessions(ctx, roleID)
	return nil
}

// AssignRoles attaches roles to a user and invalidates the user's
// sessions.
func (s *PermissionService) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	for _, roleID := range roleIDs {
		if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoleNotFound
			}
			return err
		}
		if err := s.roleRepo.AssignRoleToUser(ctx, userID, roleID); err != nil {
			return err
		}
	}

	s.revokeUserSessions(ctx, userID)
	return nil
}

func (s *PermissionService) revokeUserSessions(ctx context.Context, userID uuid.UUID) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeAllByUser(ctx, userID); err != nil {
		log.Printf("[PERMISSION_SERVICE] failed to revoke sessions for user %s: %v", userID, err)
	}
}

func (s *PermissionService) revokeRoleSessions(ctx context.Context, roleID uuid.UUID) {
	if s.revoker == nil {
		return
	}
	userIDs, err := s.roleRepo.GetUsersWithRole(ctx, roleID)
	if err != nil {
		log.Printf("[PERMISSION_SERVICE] failed to list users with role %s: %v", roleID, err)
		return
	}
	for _, userID := range userIDs {
		if err := s.revoker.RevokeAllByUser(ctx, userID); err != nil {
			log.Printf("[PERMISSION_SERVICE] failed to revoke sessions for user %s: %v", userID, err)
		}
	}
}
