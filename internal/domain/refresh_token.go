package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted half of an opaque refresh token. Only a
// SHA-256 hash of the client-held secret is stored; the wire form is
// "<id>.<secret>". A revoked or expired record is terminal and is never
// reactivated.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	IssuedAt  time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

// Expired reports whether the token lifetime has elapsed at the given instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
