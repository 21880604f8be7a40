// Package service implements the credential and session use-cases on top of
// the repositories, the password hasher and the token issuer.
package service

import "errors"

// Domain failure taxonomy. Handlers map each sentinel to a fixed HTTP status
// and machine-readable code; nothing here is retried by the server.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyUsed   = errors.New("email already registered")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrSessionRevoked     = errors.New("session has been revoked")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
)
