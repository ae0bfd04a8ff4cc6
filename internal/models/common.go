package models

import "time"

//nolint:gosec //file not handles sensitive data
const (
	MwSchemeBearerAuth = "BearerAuth"

	MwRequestIDHeader = "X-Request-ID"
	MwForwardedFor    = "X-Forwarded-For"

	MwRequestIDKey = "requestID"
	MwSubjectKey   = "subject"
	MwTokenKey     = "token"
)

// User is the stored identity record. Username equals Email for users
// created through registration.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RevokedToken is keyed by the hex SHA-256 of the exact token string.
type RevokedToken struct {
	TokenHash string    `json:"token_hash"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
