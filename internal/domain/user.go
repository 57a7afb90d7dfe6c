package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusLocked UserStatus = "locked"
)

type User struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Active         bool       `json:"active" db:"active"`
	Status         UserStatus `json:"status" db:"status"`
	FailedAttempts int        `json:"-" db:"failed_attempts"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at" db:"last_login_at"`
}

// Locked reports whether the account is in the locked state. A locked
// account rejects logins before credentials are checked.
func (u *User) Locked() bool {
	return u.Status == UserStatusLocked
}
