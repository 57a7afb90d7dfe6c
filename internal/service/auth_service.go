package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/config"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/repository"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/hash"
	"github.com/juancuadra2/erp-lite-backend-sub002/pkg/jwt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account is locked")
	ErrUserInactive        = errors.New("user account is not active")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// TokenBlacklist is the slice of pkg/blacklist the auth flow needs.
type TokenBlacklist interface {
	AddAccessToken(ctx context.Context, token string, expiresAt time.Time) error
	BlacklistUser(ctx context.Context, username string, ttl time.Duration) error
}

// SecurityNotifier delivers security emails; failures are logged, never
// surfaced to the caller.
type SecurityNotifier interface {
	NotifyLockout(ctx context.Context, to, username string) error
	NotifyPasswordChanged(ctx context.Context, to, username string) error
}

type AuthService struct {
	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	refreshRepo  repository.RefreshTokenRepository
	tokenService *jwt.TokenService
	blacklist    TokenBlacklist
	notifier     SecurityNotifier
	cfg          *config.Config
	now          func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	refreshRepo repository.RefreshTokenRepository,
	tokenService *jwt.TokenService,
	blacklist TokenBlacklist,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		refreshRepo:  refreshRepo,
		tokenService: tokenService,
		blacklist:    blacklist,
		cfg:          cfg,
		now:          time.Now,
	}
}

// SetNotifier enables security notification emails.
func (s *AuthService) SetNotifier(notifier SecurityNotifier) {
	s.notifier = notifier
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Tokens *domain.TokenPair `json:"tokens"`
	User   *UserDTO          `json:"user"`
}

type UserDTO struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
}

// Login verifies credentials and issues an access/refresh token pair.
// The lock check runs before the credential check so a locked account
// answers the same no matter what password was sent.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Same answer as a wrong password; don't leak which usernames exist
		return nil, ErrInvalidCredentials
	}

	if user.Locked() {
		return nil, ErrAccountLocked
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	valid, err := hash.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		s.handleFailedLogin(ctx, user)
		return nil, ErrInvalidCredentials
	}

	if user.FailedAttempts > 0 {
		if err := s.userRepo.ResetFailedAttempts(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	roleNames, permissionIDs, err := s.resolveAuthorities(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokenPair(ctx, user, roleNames, permissionIDs)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AUTH_SERVICE] failed to update last login for %s: %v", user.Username, err)
	}

	return &LoginResponse{
		Tokens: pair,
		User: &UserDTO{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Roles:    roleNames,
		},
	}, nil
}

// Refresh rotates the presented refresh token and issues a fresh access
// token with the user's current roles and permissions. Presenting an
// already-revoked token is treated as reuse and revokes every token of
// that user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	record, err := s.refreshRepo.GetByID(ctx, tokenID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if record.Revoked {
		// Reuse of a rotated-away token: someone replayed it. Kill the
		// whole session family.
		log.Printf("[AUTH_SERVICE] refresh token reuse detected for user %s", record.UserID)
		if err := s.RevokeAllByUser(ctx, record.UserID); err != nil {
			log.Printf("[AUTH_SERVICE] failed to revoke session family for %s: %v", record.UserID, err)
		}
		return nil, ErrInvalidRefreshToken
	}
	if record.Expired(s.now()) {
		return nil, ErrInvalidRefreshToken
	}
	if !secretMatches(record.TokenHash, secret) {
		_ = s.refreshRepo.Revoke(ctx, record.ID)
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if user.Locked() {
		return nil, ErrAccountLocked
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	roleNames, permissionIDs, err := s.resolveAuthorities(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.tokenService.Generate(user.Username, roleNames, permissionIDs)
	if err != nil {
		return nil, err
	}

	rawRefresh, next, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	// Atomic rotation: revoke-old and insert-new commit together
	if err := s.refreshRepo.Rotate(ctx, record.ID, next); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

// Logout revokes the presented refresh token and blacklists the access
// token for its remaining lifetime.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if accessToken != "" {
		if claims, err := s.tokenService.Validate(accessToken); err == nil && claims.ExpiresAt != nil {
			if err := s.blacklist.AddAccessToken(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
				log.Printf("[AUTH_SERVICE] failed to blacklist access token: %v", err)
			}
		}
	}

	tokenID, _, err := splitRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if err := s.refreshRepo.Revoke(ctx, tokenID); err != nil {
		return ErrInvalidRefreshToken
	}
	return nil
}

// RevokeAllByUser invalidates every outstanding refresh token for the
// user and marks previously issued access tokens stale. Called on
// logout-everywhere, password change and role/permission changes so new
// claims take effect at the next login instead of at token expiry.
func (s *AuthService) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshRepo.RevokeAllByUser(ctx, userID); err != nil {
		return err
	}

	// The invalidation marker is keyed by username because that's the
	// token subject the middleware sees.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	if err := s.blacklist.BlacklistUser(ctx, user.Username, s.cfg.JWT.AccessTokenExpiry+time.Hour); err != nil {
		log.Printf("[AUTH_SERVICE] failed to blacklist user %s: %v", user.Username, err)
	}
	return nil
}

// ChangePassword verifies the old password, stores the new hash and
// forces re-authentication everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	valid, err := hash.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if len(newPassword) < s.cfg.Auth.PasswordMinLength {
		return ErrInvalidPassword
	}

	newHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPasswordChanged(ctx, user.Email, user.Username); err != nil {
			log.Printf("[AUTH_SERVICE] failed to send password change notice: %v", err)
		}
	}

	return s.RevokeAllByUser(ctx, userID)
}

// UnlockUser is the explicit administrative transition out of the locked
// state; it also resets the failure counter.
func (s *AuthService) UnlockUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Unlock(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// handleFailedLogin bumps the failure counter and locks the account once
// the threshold is reached. The increment is atomic at the persistence
// layer, so concurrent failures cannot slip past the threshold.
func (s *AuthService) handleFailedLogin(ctx context.Context, user *domain.User) {
	attempts, err := s.userRepo.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		log.Printf("[AUTH_SERVICE] failed to increment attempts for %s: %v", user.Username, err)
		return
	}

	if attempts < s.cfg.Auth.MaxFailedAttempts {
		return
	}

	locked, err := s.userRepo.Lock(ctx, user.ID, s.cfg.Auth.MaxFailedAttempts)
	if err != nil {
		log.Printf("[AUTH_SERVICE] failed to lock %s: %v", user.Username, err)
		return
	}
	if !locked {
		return
	}

	log.Printf("[AUTH_SERVICE] account %s locked after %d failed attempts", user.Username, attempts)
	if s.notifier != nil {
		if err := s.notifier.NotifyLockout(ctx, user.Email, user.Username); err != nil {
			log.Printf("[AUTH_SERVICE] failed to send lockout notice: %v", err)
		}
	}
}

// resolveAuthorities loads the user's current role names and permission
// identifiers for embedding into the access token.
func (s *AuthService) resolveAuthorities(ctx context.Context, userID uuid.UUID) ([]string, []string, error) {
	roles, err := s.roleRepo.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	roleNames := make([]string, len(roles))
	for i, role := range roles {
		roleNames[i] = role.Name
	}

	permissions, err := s.roleRepo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	permissionIDs := make([]string, len(permissions))
	for i, permission := range permissions {
		permissionIDs[i] = permission.Identifier()
	}

	return roleNames, permissionIDs, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User, roleNames, permissionIDs []string) (*domain.TokenPair, error) {
	accessToken, expiresAt, err := s.tokenService.Generate(user.Username, roleNames, permissionIDs)
	if err != nil {
		return nil, err
	}

	rawRefresh, record, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

// newRefreshToken mints an opaque "<id>.<secret>" token. Only the SHA-256
// of the secret is stored.
func (s *AuthService) newRefreshToken(userID uuid.UUID) (string, *domain.RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	now := s.now()
	record := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashSecret(secret),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshTokenExpiry),
	}

	return record.ID.String() + "." + secret, record, nil
}

func splitRefreshToken(raw string) (uuid.UUID, string, error) {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return uuid.Nil, "", errors.New("invalid refresh token format")
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, parts[1], nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func secretMatches(expectedHash, secret string) bool {
	actual := hashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
