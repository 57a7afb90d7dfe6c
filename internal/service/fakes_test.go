package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/juancuadra2/erp-lite-backend-sub002/internal/config"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/repository"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/jwt"
)

// In-memory repository fakes. They hold copies behind a mutex and honor
// the same atomicity contracts the postgres implementations do, so the
// services under test see the real semantics.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

func (r *fakeUserRepo) IncrementFailedAttempts(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.FailedAttempts++
	return user.FailedAttempts, nil
}

func (r *fakeUserRepo) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedAttempts = 0
	return nil
}

func (r *fakeUserRepo) Lock(_ context.Context, id uuid.UUID, threshold int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if user.FailedAttempts < threshold || user.Status == domain.UserStatusLocked {
		return false, nil
	}
	user.Status = domain.UserStatusLocked
	return true, nil
}

func (r *fakeUserRepo) Unlock(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Status = domain.UserStatusActive
	user.FailedAttempts = 0
	return nil
}

type fakeRoleRepo struct {
	mu              sync.Mutex
	roles           map[uuid.UUID]*domain.Role
	permissions     map[uuid.UUID]*domain.Permission
	userRoles       map[uuid.UUID][]uuid.UUID // userID -> roleIDs
	rolePermissions map[uuid.UUID][]uuid.UUID // roleID -> permissionIDs
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:           make(map[uuid.UUID]*domain.Role),
		permissions:     make(map[uuid.UUID]*domain.Permission),
		userRoles:       make(map[uuid.UUID][]uuid.UUID),
		rolePermissions: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *fakeRoleRepo) Create(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *role
	r.roles[role.ID] = &clone
	return nil
}

func (r *fakeRoleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *role
	return &clone, nil
}

func (r *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name {
			clone := *role
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRoleRepo) List(_ context.Context) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		clone := *role
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRoleRepo) Update(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *role
	r.roles[role.ID] = &clone
	return nil
}

func (r *fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *fakeRoleRepo) CountUsersWithRole(_ context.Context, roleID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, roleIDs := range r.userRoles {
		for _, id := range roleIDs {
			if id == roleID {
				count++
			}
		}
	}
	return count, nil
}

func (r *fakeRoleRepo) AssignRoleToUser(_ context.Context, userID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.userRoles[userID] {
		if id == roleID {
			return nil
		}
	}
	r.userRoles[userID] = append(r.userRoles[userID], roleID)
	return nil
}

func (r *fakeRoleRepo) RemoveRoleFromUser(_ context.Context, userID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	roleIDs := r.userRoles[userID]
	for i, id := range roleIDs {
		if id == roleID {
			r.userRoles[userID] = append(roleIDs[:i], roleIDs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRoleRepo) GetUserRoles(_ context.Context, userID uuid.UUID) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, roleID := range r.userRoles[userID] {
		if role, ok := r.roles[roleID]; ok {
			clone := *role
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) GetUsersWithRole(_ context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for userID, roleIDs := range r.userRoles {
		for _, id := range roleIDs {
			if id == roleID {
				out = append(out, userID)
			}
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) AssignPermissionToRole(_ context.Context, roleID, permissionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.rolePermissions[roleID] {
		if id == permissionID {
			return nil
		}
	}
	r.rolePermissions[roleID] = append(r.rolePermissions[roleID], permissionID)
	return nil
}

func (r *fakeRoleRepo) RemovePermissionFromRole(_ context.Context, roleID, permissionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	permissionIDs := r.rolePermissions[roleID]
	for i, id := range permissionIDs {
		if id == permissionID {
			r.rolePermissions[roleID] = append(permissionIDs[:i], permissionIDs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRoleRepo) GetRolePermissions(_ context.Context, roleID uuid.UUID) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Permission
	for _, permissionID := range r.rolePermissions[roleID] {
		if permission, ok := r.permissions[permissionID]; ok {
			clone := *permission
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) GetUserPermissions(_ context.Context, userID uuid.UUID) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []*domain.Permission
	for _, roleID := range r.userRoles[userID] {
		for _, permissionID := range r.rolePermissions[roleID] {
			if seen[permissionID] {
				continue
			}
			seen[permissionID] = true
			if permission, ok := r.permissions[permissionID]; ok {
				clone := *permission
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

// registerPermission makes a permission visible to GetRolePermissions and
// friends without going through PermissionRepository.
func (r *fakeRoleRepo) registerPermission(permission *domain.Permission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *permission
	r.permissions[permission.ID] = &clone
}

// fakePermissionRepo shares the role repo's assignment tables so
// FindForUser walks the same data the services mutate.
type fakePermissionRepo struct {
	roles *fakeRoleRepo
}

func newFakePermissionRepo(roles *fakeRoleRepo) *fakePermissionRepo {
	return &fakePermissionRepo{roles: roles}
}

func (r *fakePermissionRepo) Create(_ context.Context, permission *domain.Permission) error {
	r.roles.registerPermission(permission)
	return nil
}

func (r *fakePermissionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Permission, error) {
	r.roles.mu.Lock()
	defer r.roles.mu.Unlock()
	permission, ok := r.roles.permissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *permission
	return &clone, nil
}

func (r *fakePermissionRepo) List(_ context.Context) ([]*domain.Permission, error) {
	r.roles.mu.Lock()
	defer r.roles.mu.Unlock()
	out := make([]*domain.Permission, 0, len(r.roles.permissions))
	for _, permission := range r.roles.permissions {
		clone := *permission
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakePermissionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.roles.mu.Lock()
	defer r.roles.mu.Unlock()
	if _, ok := r.roles.permissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.roles.permissions, id)
	return nil
}

func (r *fakePermissionRepo) FindForUser(_ context.Context, userID uuid.UUID, resource, action string) ([]*domain.Permission, error) {
	r.roles.mu.Lock()
	defer r.roles.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []*domain.Permission
	for _, roleID := range r.roles.userRoles[userID] {
		for _, permissionID := range r.roles.rolePermissions[roleID] {
			if seen[permissionID] {
				continue
			}
			permission, ok := r.roles.permissions[permissionID]
			if !ok || permission.Resource != resource || permission.Action != action {
				continue
			}
			seen[permissionID] = true
			clone := *permission
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[uuid.UUID]*domain.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *token
	r.tokens[token.ID] = &clone
	return nil
}

func (r *fakeRefreshTokenRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *token
	return &clone, nil
}

func (r *fakeRefreshTokenRepo) Revoke(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	token.Revoked = true
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) Rotate(_ context.Context, oldID uuid.UUID, next *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tokens[oldID]
	if !ok || old.Revoked {
		return repository.ErrAlreadyRevoked
	}
	old.Revoked = true
	clone := *next
	r.tokens[next.ID] = &clone
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for id, token := range r.tokens {
		if token.Expired(now) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshTokenRepo) liveCountForUser(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, token := range r.tokens {
		if token.UserID == userID && !token.Revoked {
			count++
		}
	}
	return count
}

type fakeBlacklist struct {
	mu           sync.Mutex
	accessTokens map[string]time.Time
	users        map[string]time.Time
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{
		accessTokens: make(map[string]time.Time),
		users:        make(map[string]time.Time),
	}
}

func (b *fakeBlacklist) AddAccessToken(_ context.Context, token string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessTokens[token] = expiresAt
	return nil
}

func (b *fakeBlacklist) BlacklistUser(_ context.Context, username string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = time.Now()
	return nil
}

func (b *fakeBlacklist) hasAccessToken(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.accessTokens[token]
	return ok
}

func (b *fakeBlacklist) hasUser(username string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.users[username]
	return ok
}

type fakeNotifier struct {
	mu               sync.Mutex
	lockouts        []string
	passwordChanges []string
}

func (n *fakeNotifier) NotifyLockout(_ context.Context, _, username string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lockouts = append(n.lockouts, username)
	return nil
}

func (n *fakeNotifier) NotifyPasswordChanged(_ context.Context, _, username string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.passwordChanges = append(n.passwordChanges, username)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessTokenExpiry:  30 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			Issuer:             "erp-auth",
		},
		Auth: config.AuthConfig{
			MaxFailedAttempts: 5,
			PasswordMinLength: 8,
			ConditionTimeout:  100 * time.Millisecond,
		},
	}
}

func testTokenService(t *testing.T) *jwt.TokenService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	svc, err := jwt.NewTokenService(privatePEM, publicPEM, 30*time.Minute, "erp-auth")
	require.NoError(t, err)
	return svc
}
