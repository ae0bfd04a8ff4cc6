package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type UserRepository struct {
	db storage.DBTX
}

func NewUserRepository(db storage.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	createdAt := unixNow()
	query := `INSERT INTO users (username, email, name, hashed_password, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.Name, user.PasswordHash, createdAt).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, email, name, hashed_password, created_at FROM users WHERE username = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, name, hashed_password, created_at FROM users WHERE email = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user      models.User
		name      sql.NullString
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &name, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	if name.Valid {
		user.Name = &name.String
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}
