package repository

import "errors"

var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyRevoked = errors.New("refresh token already revoked")
)
