package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid covers every verification failure: bad signature,
	// expiry, audience, issuer, unknown key and malformed input.
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrRateLimited    = errors.New("too many requests")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrValidation     = errors.New("validation failed")
	ErrUserNotFound   = errors.New("user not found")
	ErrNoteNotFound   = errors.New("note not found")
)
