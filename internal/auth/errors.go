package auth

import "errors"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrPasswordTooShort   = errors.New("password is too short")

	ErrInvalidToken    = errors.New("invalid session")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")

	ErrForbidden = errors.New("insufficient privileges")
)
