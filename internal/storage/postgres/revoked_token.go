package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rryowa/weq_api/internal/storage"
)

type RevokedTokenRepository struct {
	db storage.DBTX
}

func NewRevokedTokenRepository(db storage.DBTX) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	query := `INSERT INTO revoked_tokens (token_hash, expires_at) VALUES ($1, $2) ON CONFLICT (token_hash) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, storage.TokenHash(token), expiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, storage.TokenHash(token)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// PurgeExpired deletes revocations whose token has expired on its own.
func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return n, nil
}
