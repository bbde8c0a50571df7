package auth

import "errors"

// Domain errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrNoSecret     = errors.New("signing secret is empty")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
