package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/weq_api/internal/storage/memory"
	"github.com/rryowa/weq_api/internal/util"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func testTokenConfig(active string, keys map[string]string) *util.TokenConfig {
	reg := make(map[string][]byte, len(keys))
	for kid, secret := range keys {
		reg[kid] = []byte(secret)
	}
	return &util.TokenConfig{
		Keys:        reg,
		ActiveKeyID: active,
		Algorithm:   "HS256",
		Audience:    "weq-api",
		Issuer:      "weq-auth-service",
		AccessTTL:   30 * time.Minute,
	}
}

func fastHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h := newPasswordHasher(SchemeBcrypt, bcrypt.MinCost, 1000)
	require.NoError(t, h.initDummy())
	return h
}

type authFixture struct {
	svc     *AuthService
	store   *memory.Storage
	codec   *TokenCodec
	limiter *RateLimiter
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := memory.NewStorage(testLogger())
	codec, err := NewTokenCodec(testTokenConfig("key-1", map[string]string{"key-1": "secret-1"}), testLogger())
	require.NoError(t, err)
	limiter := newRateLimiter(5, time.Minute, time.Now)

	return &authFixture{
		svc:     NewAuthService(store, nil, fastHasher(t), codec, limiter, NewSecurityNotifier(testLogger(), ""), testLogger()),
		store:   store,
		codec:   codec,
		limiter: limiter,
	}
}
