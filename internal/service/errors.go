package service

import "errors"

// Sentinel errors surfaced across the service layer. Handlers map these onto
// HTTP status codes.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRequestNotFound    = errors.New("purchase request not found")
	ErrForbidden          = errors.New("operation not permitted for this user")
)
