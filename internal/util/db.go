package util

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	AdapterPostgres = "postgres"
	AdapterSQLite   = "sqlite"
	AdapterMemory   = "memory"

	RevocationDB    = "db"
	RevocationRedis = "redis"

	pingTimeout = 5 * time.Second
)

type DBConfig struct {
	Adapter            string
	DSN                string
	SQLiteFile         string
	RevocationBackend  string
	RevocationSweepInt time.Duration
}

func NewDBConfig() (*DBConfig, error) {
	cfg := &DBConfig{
		Adapter:            getenv("DB_ADAPTER", defaultDBAdapter),
		DSN:                os.Getenv("DATABASE_URL"),
		SQLiteFile:         getenv("SQLITE_FILE", defaultSQLiteFile),
		RevocationBackend:  getenv("REVOCATION_BACKEND", defaultRevocationBackend),
		RevocationSweepInt: parseDurationOrDefault("REVOCATION_SWEEP_INTERVAL", defaultRevocationSweepInt),
	}

	switch cfg.Adapter {
	case AdapterPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case AdapterSQLite:
		if cfg.SQLiteFile == "" {
			return nil, fmt.Errorf("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
		}
	case AdapterMemory:
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", cfg.Adapter)
	}

	switch cfg.RevocationBackend {
	case RevocationDB, RevocationRedis:
	default:
		return nil, fmt.Errorf("unsupported REVOCATION_BACKEND: %s (supported: db, redis)", cfg.RevocationBackend)
	}

	return cfg, nil
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisConfig returns nil when REDIS_ADDR is unset; redis is optional.
func NewRedisConfig() *RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}

	return &RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       parseIntOrDefault("REDIS_DB", 0),
	}
}

// NewDBConnection opens the database selected by cfg.Adapter.
func NewDBConnection(logger *zap.SugaredLogger, cfg *DBConfig) (*sql.DB, func(), error) {
	var (
		driver string
		dsn    string
	)
	switch cfg.Adapter {
	case AdapterPostgres:
		driver, dsn = "postgres", cfg.DSN
	case AdapterSQLite:
		if dir := filepath.Dir(cfg.SQLiteFile); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		driver, dsn = "sqlite", cfg.SQLiteFile+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	default:
		return nil, nil, fmt.Errorf("adapter %s has no sql connection", cfg.Adapter)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Adapter == AdapterSQLite {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	logger.Infof("Successfully connected to %s database!", cfg.Adapter)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Errorf("Failed to close database connection: %v", err)
		} else {
			logger.Info("Database connection closed successfully.")
		}
	}

	return db, cleanup, nil
}

func NewRedisClient(logger *zap.SugaredLogger, cfg *RedisConfig) (*redis.Client, func(), error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("Successfully connected to Redis!")

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Failed to close Redis connection: %v", err)
		} else {
			logger.Info("Redis connection closed successfully.")
		}
	}

	return redisClient, cleanup, nil
}
