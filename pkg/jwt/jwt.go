package jwt

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juancuadra2/erp-lite-backend-sub002/internal/domain"
)

var (
	ErrInvalidSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken         = errors.New("invalid token")
)

// TokenService signs and verifies access tokens. The private key never
// leaves the issuing process; tokens carry only the claims.
type TokenService struct {
	privateKey   *rsa.PrivateKey
	publicKey    *rsa.PublicKey
	accessExpiry time.Duration
	issuer       string
}

func NewTokenService(privateKeyPEM, publicKeyPEM []byte, accessExpiry time.Duration, issuer string) (*TokenService, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		privateKey:   privateKey,
		publicKey:    publicKey,
		accessExpiry: accessExpiry,
		issuer:       issuer,
	}, nil
}

// Generate signs an access token for the user carrying role names and
// permission identifiers. Expiry is issued-at plus the configured TTL.
func (s *TokenService) Generate(username string, roles, permissions []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessExpiry)

	claims := domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Roles:       roles,
		Permissions: permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Validate parses and verifies signature and expiry.
func (s *TokenService) Validate(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IsValid reports whether the token is well formed, correctly signed and
// unexpired. It never returns an error to the caller.
func (s *TokenService) IsValid(tokenString string) bool {
	_, err := s.Validate(tokenString)
	return err == nil
}

// ExtractUsername reads the subject claim from an already-validated token.
func (s *TokenService) ExtractUsername(tokenString string) (string, error) {
	claims, err := s.extract(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRoles reads the roles claim from an already-validated token.
func (s *TokenService) ExtractRoles(tokenString string) ([]string, error) {
	claims, err := s.extract(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

// ExtractPermissions reads the permissions claim from an already-validated token.
func (s *TokenService) ExtractPermissions(tokenString string) ([]string, error) {
	claims, err := s.extract(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Permissions, nil
}

// extract parses claims without re-verifying the signature; callers are
// expected to have validated the token first.
func (s *TokenService) extract(tokenString string) (*domain.Claims, error) {
	var claims domain.Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
