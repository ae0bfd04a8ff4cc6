package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type RevokedTokenRepository struct {
	mu      sync.RWMutex
	revoked map[string]models.RevokedToken
}

func NewRevokedTokenRepository() *RevokedTokenRepository {
	return &RevokedTokenRepository{
		revoked: make(map[string]models.RevokedToken),
	}
}

func (m *RevokedTokenRepository) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := storage.TokenHash(token)
	if _, ok := m.revoked[hash]; ok {
		return nil
	}
	m.revoked[hash] = models.RevokedToken{
		TokenHash: hash,
		RevokedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m *RevokedTokenRepository) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.revoked[storage.TokenHash(token)]
	return ok, nil
}

func (m *RevokedTokenRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for hash, rt := range m.revoked {
		if rt.ExpiresAt.Before(now) {
			delete(m.revoked, hash)
			n++
		}
	}
	return n, nil
}
