package sqlite

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
	query := `INSERT INTO revoked_tokens (token_hash, revoked_at, expires_at) VALUES (?, ?, ?) ON CONFLICT (token_hash) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, storage.TokenHash(token), unixNow(), expiresAt.Unix()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = ?)`
	var exists int
	if err := r.db.QueryRowContext(ctx, query, storage.TokenHash(token)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists == 1, nil
}

func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return n, nil
}
