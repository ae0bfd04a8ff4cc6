package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

const uniqueViolation = "23505"

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

// RegisterUser checks email uniqueness and inserts the user in one
// transaction, returning the row with server-assigned fields.
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
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
