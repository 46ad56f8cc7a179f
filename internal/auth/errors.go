package auth

import "errors"

// Domain errors returned by Service. Anything else is an internal error.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnauthenticated     = errors.New("invalid authentication credentials")
	ErrInvalidInput        = errors.New("invalid input")
)
