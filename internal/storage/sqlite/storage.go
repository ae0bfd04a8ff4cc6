// Package sqlite is the single-node storage backend selected with
// DB_ADAPTER=sqlite. Timestamps are stored as unix seconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*RevokedTokenRepository
	*NoteRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		RevokedTokenRepository: NewRevokedTokenRepository(db),
		NoteRepository:         NewNoteRepository(db),
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) RegisterUser(ctx context.Context, user models.User) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	userRepoTx := NewUserRepository(tx)

	if _, err := userRepoTx.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, storage.ErrUserExists
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user by email in tx: %w", err)
	}

	created, err := userRepoTx.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user in tx: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return created, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func unixNow() int64 {
	return time.Now().UTC().Unix()
}
