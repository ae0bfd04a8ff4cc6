// Package app opens the backends selected by configuration. It is shared by
// the API server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/migrations"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/storage"
	"github.com/rryowa/weq_api/internal/storage/memory"
	"github.com/rryowa/weq_api/internal/storage/postgres"
	"github.com/rryowa/weq_api/internal/storage/redis"
	"github.com/rryowa/weq_api/internal/storage/sqlite"
	"github.com/rryowa/weq_api/internal/util"
)

// Backends is everything opened for a process. Cleanup releases them in
// reverse order.
type Backends struct {
	Storage    storage.Storage
	Revocation storage.RevokedTokenRepository
	Purger     storage.RevocationPurger
	Health     *service.HealthService

	cleanups []func()
}

func (b *Backends) Cleanup() {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
}

// OpenBackends connects to the database, runs migrations and picks the
// revocation store.
func OpenBackends(ctx context.Context, logger *zap.SugaredLogger, cfg *util.Config) (*Backends, error) {
	b := &Backends{Health: service.NewHealthService(logger)}

	st, err := b.openStorage(ctx, logger, cfg.DB)
	if err != nil {
		b.Cleanup()
		return nil, err
	}
	b.Storage = st
	b.Health.AddCheck("database", st)

	b.Revocation = st
	if p, ok := st.(storage.RevocationPurger); ok {
		b.Purger = p
	}

	if cfg.DB.RevocationBackend == util.RevocationRedis {
		if cfg.Redis == nil {
			b.Cleanup()
			return nil, fmt.Errorf("REVOCATION_BACKEND=redis requires REDIS_ADDR")
		}
		client, cleanup, err := util.NewRedisClient(logger, cfg.Redis)
		if err != nil {
			b.Cleanup()
			return nil, err
		}
		b.cleanups = append(b.cleanups, cleanup)

		tokenStorage := redis.NewTokenStorage(client)
		b.Revocation = tokenStorage
		b.Purger = nil
		b.Health.AddCheck("redis", tokenStorage)
	}

	logger.Infow("backends ready", "adapter", cfg.DB.Adapter, "revocation", cfg.DB.RevocationBackend)
	return b, nil
}

func (b *Backends) openStorage(ctx context.Context, logger *zap.SugaredLogger, cfg *util.DBConfig) (storage.Storage, error) {
	if cfg.Adapter == util.AdapterMemory {
		logger.Warn("using in-memory storage, nothing will survive a restart")
		return memory.NewStorage(logger), nil
	}

	db, cleanup, err := util.NewDBConnection(logger, cfg)
	if err != nil {
		return nil, err
	}
	b.cleanups = append(b.cleanups, cleanup)

	if err := migrations.RunMigrations(db, logger, cfg.Adapter); err != nil {
		return nil, err
	}
	migrations.PatchSchema(ctx, db, logger, cfg.Adapter)

	return newSQLStorage(db, cfg.Adapter), nil
}

func newSQLStorage(db *sql.DB, adapter string) storage.Storage {
	if adapter == util.AdapterSQLite {
		return sqlite.NewStorage(db)
	}
	return postgres.NewStorage(db)
}
