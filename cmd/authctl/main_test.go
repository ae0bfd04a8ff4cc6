package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/weq_api/internal/util"
)

func testConfig(t *testing.T) *util.Config {
	t.Helper()
	return &util.Config{
		App: &util.AppConfig{Env: util.EnvDev},
		Token: &util.TokenConfig{
			Keys:        map[string][]byte{"key-1": []byte("cli-secret")},
			ActiveKeyID: "key-1",
			Algorithm:   "HS256",
			Audience:    "weq-api",
			Issuer:      "weq-auth-service",
			AccessTTL:   30 * time.Minute,
		},
		Password: &util.PasswordConfig{BcryptCost: bcrypt.MinCost},
		DB: &util.DBConfig{
			Adapter:           util.AdapterSQLite,
			SQLiteFile:        filepath.Join(t.TempDir(), "cli.db"),
			RevocationBackend: util.RevocationDB,
		},
	}
}

func stubPassword(t *testing.T, pw string, err error) {
	t.Helper()
	orig := readPassword
	readPassword = func() ([]byte, error) { return []byte(pw), err }
	t.Cleanup(func() { readPassword = orig })
}

func TestRun_IssueAndVerifyToken(t *testing.T) {
	cfg := testConfig(t)
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"issue-token", "-subject", "ops@example.com", "-ttl", "5m"}, cfg, logger, &out))
	token := strings.SplitN(out.String(), "\n", 2)[0]
	assert.Contains(t, out.String(), "kid key-1")

	out.Reset()
	require.NoError(t, run(ctx, []string{"verify-token", "-token", token}, cfg, logger, &out))
	assert.Contains(t, out.String(), "subject: ops@example.com")
	assert.Contains(t, out.String(), "kid: key-1")

	assert.Error(t, run(ctx, []string{"verify-token", "-token", token + "x"}, cfg, logger, &out))
	assert.Error(t, run(ctx, []string{"issue-token"}, cfg, logger, &out))
}

func TestRun_CreateUser(t *testing.T) {
	cfg := testConfig(t)
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	stubPassword(t, "Operator99", nil)
	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"create-user", "-email", "ops@example.com", "-name", "Ops"}, cfg, logger, &out))
	assert.Contains(t, out.String(), "created user 1 (ops@example.com)")

	err := run(ctx, []string{"create-user", "-email", "ops@example.com"}, cfg, logger, &out)
	assert.Error(t, err)

	stubPassword(t, "weak", nil)
	err = run(ctx, []string{"create-user", "-email", "other@example.com"}, cfg, logger, &out)
	assert.Error(t, err)

	stubPassword(t, "", errors.New("no tty"))
	err = run(ctx, []string{"create-user", "-email", "third@example.com"}, cfg, logger, &out)
	assert.ErrorContains(t, err, "read password")
}

func TestRun_Purge(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"purge"}, cfg, zap.NewNop().Sugar(), &out))
	assert.Contains(t, out.String(), "purged 0 expired revocations")
}

func TestRun_PurgeReportsStorageFailure(t *testing.T) {
	cfg := testConfig(t)
	logger := zap.NewNop().Sugar()
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, []string{"purge"}, cfg, logger, &out))

	db, err := sql.Open("sqlite", cfg.DB.SQLiteFile)
	require.NoError(t, err)
	_, err = db.Exec(`DROP TABLE revoked_tokens`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out.Reset()
	err = run(ctx, []string{"purge"}, cfg, logger, &out)
	assert.ErrorContains(t, err, "purge expired revocations")
	assert.NotContains(t, out.String(), "purged")
}

func TestRun_UsageErrors(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	assert.Error(t, run(context.Background(), nil, cfg, zap.NewNop().Sugar(), &out))
	assert.Contains(t, out.String(), "usage: authctl")

	assert.ErrorContains(t, run(context.Background(), []string{"frobnicate"}, cfg, zap.NewNop().Sugar(), &out), "frobnicate")
	assert.NoError(t, run(context.Background(), []string{"help"}, cfg, zap.NewNop().Sugar(), &out))
}
