package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rryowa/weq_api/internal/storage"
	"github.com/rryowa/weq_api/internal/util"
)

const (
	revokedKeyPrefix = "revoked:"
	revokedValue     = "revoked"
	// Tokens already past expiry are rejected by signature checks anyway, but
	// keep a short floor so a racing request still sees the revocation.
	minRevocationTTL = time.Minute
)

// TokenStorage is the redis revocation backend. Entries expire once the token
// they revoke can no longer verify, leeway included, so no sweeping is needed.
type TokenStorage struct {
	client redis.UniversalClient
}

func NewTokenStorage(client redis.UniversalClient) *TokenStorage {
	return &TokenStorage{client: client}
}

func (s *TokenStorage) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt) + util.JWTLeeWay
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	// SETNX keeps the first revocation; a repeated logout is a no-op.
	if err := s.client.SetNX(ctx, revokedKey(token), revokedValue, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked проверяет наличие токена в Redis.
func (s *TokenStorage) IsRevoked(ctx context.Context, token string) (bool, error) {
	result, err := s.client.Get(ctx, revokedKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return result == revokedValue, nil
}

func (s *TokenStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func revokedKey(token string) string {
	return revokedKeyPrefix + storage.TokenHash(token)
}
