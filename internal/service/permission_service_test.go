package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/condition"
)

type permissionFixture struct {
	svc     *PermissionService
	users   *fakeUserRepo
	roles   *fakeRoleRepo
	perms   *fakePermissionRepo
	refresh *fakeRefreshTokenRepo
	userID  uuid.UUID
}

func newPermissionFixture(t *testing.T) *permissionFixture {
	t.Helper()

	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	perms := newFakePermissionRepo(roles)
	refresh := newFakeRefreshTokenRepo()

	svc := NewPermissionService(perms, roles, users, condition.NewEvaluator(condition.DefaultTimeout))

	userID := uuid.New()
	require.NoError(t, users.Create(context.Background(), &domain.User{
		ID:       userID,
		Username: "alice",
		Email:    "alice@example.com",
		Active:   true,
		Status:   domain.UserStatusActive,
	}))

	return &permissionFixture{
		svc:     svc,
		users:   users,
		roles:   roles,
		perms:   perms,
		refresh: refresh,
		userID:  userID,
	}
}

func (f *permissionFixture) grant(t *testing.T, roleName, resource, action string, conditionExpr *string) *domain.Permission {
	t.Helper()
	ctx := context.Background()

	role, err := f.roles.GetByName(ctx, roleName)
	if err != nil {
		role = &domain.Role{ID: uuid.New(), Name: roleName}
		require.NoError(t, f.roles.Create(ctx, role))
		require.NoError(t, f.roles.AssignRoleToUser(ctx, f.userID, role.ID))
	}

	permission := &domain.Permission{
		ID:        uuid.New(),
		Resource:  resource,
		Action:    action,
		Condition: conditionExpr,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.perms.Create(ctx, permission))
	require.NoError(t, f.roles.AssignPermissionToRole(ctx, role.ID, permission.ID))
	return permission
}

func strPtr(s string) *string { return &s }

func TestCheckPermissionConditionalGrant(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	f.grant(t, "EDITOR", "Invoice", "UPDATE", strPtr("amount <= 1000"))
	f.grant(t, "EDITOR", "Invoice", "READ", nil)

	assert.True(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "UPDATE", map[string]any{"amount": 500}))
	assert.False(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "UPDATE", map[string]any{"amount": 5000}))
	assert.False(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "DELETE", map[string]any{"amount": 500}))

	// Unconditional permission grants under any attributes
	assert.True(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "READ", nil))
	assert.True(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "READ", map[string]any{"amount": 999999}))
}

func TestCheckPermissionNoRoles(t *testing.T) {
	f := newPermissionFixture(t)

	assert.False(t, f.svc.CheckPermission(context.Background(), f.userID, "Invoice", "READ", nil))
}

func TestCheckPermissionUnknownUser(t *testing.T) {
	f := newPermissionFixture(t)

	assert.False(t, f.svc.CheckPermission(context.Background(), uuid.New(), "Invoice", "READ", nil))
	assert.False(t, f.svc.CheckPermissionByUsername(context.Background(), "nobody", "Invoice", "READ", nil))
}

func TestCheckPermissionAnyCandidateGrants(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	// Two roles contribute candidates for the same resource/action with
	// different conditions; one holding is enough.
	f.grant(t, "JUNIOR", "Invoice", "APPROVE", strPtr("amount <= 100"))
	f.grant(t, "SENIOR", "Invoice", "APPROVE", strPtr("amount <= 10000"))

	assert.True(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "APPROVE", map[string]any{"amount": 5000}))
	assert.False(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "APPROVE", map[string]any{"amount": 50000}))
}

func TestCheckPermissionFailsClosedOnBrokenCondition(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	f.grant(t, "EDITOR", "Invoice", "UPDATE", strPtr("amount <="))

	assert.False(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "UPDATE", map[string]any{"amount": 1}))
}

func TestCheckPermissionMissingAttributeDenies(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	f.grant(t, "EDITOR", "Invoice", "UPDATE", strPtr("amount <= 1000"))

	assert.False(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "UPDATE", map[string]any{}))
	assert.False(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "UPDATE", nil))
}

func TestCheckPermissionByUsername(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	f.grant(t, "VIEWER", "Invoice", "READ", nil)

	assert.True(t, f.svc.CheckPermissionByUsername(ctx, "alice", "Invoice", "READ", nil))
	assert.False(t, f.svc.CheckPermissionByUsername(ctx, "alice", "Invoice", "DELETE", nil))
}

func TestCreatePermissionValidatesCondition(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreatePermission(ctx, CreatePermissionRequest{
		Resource:  "Invoice",
		Action:    "UPDATE",
		Condition: strPtr("amount <= 1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice:UPDATE", created.Identifier())

	_, err = f.svc.CreatePermission(ctx, CreatePermissionRequest{
		Resource:  "Invoice",
		Action:    "DELETE",
		Condition: strPtr("amount <= <="),
	})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	// No condition is fine
	_, err = f.svc.CreatePermission(ctx, CreatePermissionRequest{Resource: "Invoice", Action: "READ"})
	require.NoError(t, err)
}

func TestAssignPermissionsRevokesHolderSessions(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	revoker := &recordingRevoker{}
	f.svc.SetSessionRevoker(revoker)

	role := &domain.Role{ID: uuid.New(), Name: "EDITOR"}
	require.NoError(t, f.roles.Create(ctx, role))
	require.NoError(t, f.roles.AssignRoleToUser(ctx, f.userID, role.ID))

	permission, err := f.svc.CreatePermission(ctx, CreatePermissionRequest{Resource: "Invoice", Action: "UPDATE"})
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignPermissions(ctx, role.ID, []uuid.UUID{permission.ID}))

	assert.Equal(t, []uuid.UUID{f.userID}, revoker.revoked)
	assert.True(t, f.svc.CheckPermission(ctx, f.userID, "Invoice", "UPDATE", nil))
}

func TestAssignPermissionsUnknownRole(t *testing.T) {
	f := newPermissionFixture(t)

	err := f.svc.AssignPermissions(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestAssignRolesRevokesUserSessions(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	revoker := &recordingRevoker{}
	f.svc.SetSessionRevoker(revoker)

	role := &domain.Role{ID: uuid.New(), Name: "VIEWER"}
	require.NoError(t, f.roles.Create(ctx, role))

	require.NoError(t, f.svc.AssignRoles(ctx, f.userID, []uuid.UUID{role.ID}))

	assert.Equal(t, []uuid.UUID{f.userID}, revoker.revoked)

	roles, err := f.roles.GetUserRoles(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "VIEWER", roles[0].Name)
}

func TestAssignRolesUnknownTargets(t *testing.T) {
	f := newPermissionFixture(t)
	ctx := context.Background()

	err := f.svc.AssignRoles(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = f.svc.AssignRoles(ctx, f.userID, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

type recordingRevoker struct {
	revoked []uuid.UUID
}

func (r *recordingRevoker) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	r.revoked = append(r.revoked, userID)
	return nil
}
