package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedMigrations embed.FS

// RunMigrations applies the embedded migrations for the given adapter
// ("postgres" or "sqlite").
func RunMigrations(db *sql.DB, logger *zap.SugaredLogger, adapter string) error {
	dialect, dir, err := dialectFor(adapter)
	if err != nil {
		return err
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(zap.NewStdLog(logger.Desugar()))
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully!")
	return nil
}

// PatchSchema brings databases created before the name column existed up to
// date. It is best-effort: any failure is logged and startup continues.
func PatchSchema(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger, adapter string) {
	var stmt string
	switch adapter {
	case "postgres":
		stmt = `ALTER TABLE users ADD COLUMN IF NOT EXISTS name TEXT`
	case "sqlite":
		// sqlite has no IF NOT EXISTS for columns; "duplicate column" is the expected outcome.
		stmt = `ALTER TABLE users ADD COLUMN name TEXT`
	default:
		return
	}

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		logger.Warnw("schema patch skipped", "adapter", adapter, "error", err)
		return
	}
	logger.Debugw("schema patch applied", "adapter", adapter)
}

func dialectFor(adapter string) (dialect, dir string, err error) {
	switch adapter {
	case "postgres":
		return "postgres", "postgres", nil
	case "sqlite":
		return "sqlite3", "sqlite", nil
	default:
		return "", "", fmt.Errorf("migrations: unsupported adapter %q", adapter)
	}
}
