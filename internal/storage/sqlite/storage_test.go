package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/migrations"
	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
	"github.com/rryowa/weq_api/internal/util"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunMigrations(db, zap.NewNop().Sugar(), util.AdapterSQLite))
	return NewStorage(db)
}

func TestUsers(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()
	name := "Alice"

	created, err := st.RegisterUser(ctx, models.User{
		Username: "a@x.com", Email: "a@x.com", Name: &name, PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, 5*time.Second)

	byName, err := st.GetUserByUsername(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	require.NotNil(t, byName.Name)
	assert.Equal(t, "Alice", *byName.Name)
	assert.Equal(t, "hash", byName.PasswordHash)

	byEmail, err := st.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = st.GetUserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = st.RegisterUser(ctx, models.User{Username: "other", Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	// username collision is caught by the unique index
	_, err = st.CreateUser(ctx, models.User{Username: "a@x.com", Email: "b@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, storage.ErrUserExists)
}

func TestUsers_NilName(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	_, err := st.CreateUser(ctx, models.User{Username: "bob", Email: "bob@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	u, err := st.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, u.Name)
}

func TestRevokedTokens(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, st.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, st.Revoke(ctx, "stale", now.Add(-time.Hour)))

	revoked, err := st.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = st.IsRevoked(ctx, "never")
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := st.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	revoked, err = st.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = st.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevokedTokens_ConcurrentRevoke(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.Revoke(ctx, "same", time.Now().Add(time.Hour))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestNotes(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := st.CreateNote(ctx, models.Note{Title: title, Content: title + " body"})
		require.NoError(t, err)
	}

	notes, err := st.ListNotes(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "two", notes[0].Title)
	assert.Equal(t, "three", notes[1].Title)

	note, err := st.GetNote(ctx, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "two body", note.Content)

	_, err = st.GetNote(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
}
