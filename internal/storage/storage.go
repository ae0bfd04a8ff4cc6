package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rryowa/weq_api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrNoteNotFound = errors.New("note not found")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage interface {
	UserRepository
	RevokedTokenRepository
	NoteRepository
	Ping(ctx context.Context) error
}

type UserRepository interface {
	// RegisterUser atomically checks email uniqueness and creates the user.
	RegisterUser(ctx context.Context, user models.User) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevokedTokenRepository is the revocation store. Revoke must be idempotent
// and IsRevoked must observe every completed Revoke.
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RevocationPurger is implemented by revocation stores that do not expire
// entries on their own.
type RevocationPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type NoteRepository interface {
	CreateNote(ctx context.Context, note models.Note) (*models.Note, error)
	ListNotes(ctx context.Context, offset, limit int) ([]models.Note, error)
	GetNote(ctx context.Context, id int64) (*models.Note, error)
}
