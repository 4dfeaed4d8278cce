// Package migrations applies the embedded schema migrations with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql
var embedded embed.FS

var dialects = map[string]goose.Dialect{
	"postgres": goose.DialectPostgres,
	"sqlite":   goose.DialectSQLite3,
}

// Up applies every pending migration for driver ("postgres" or "sqlite").
func Up(ctx context.Context, db *sql.DB, driver string, log *zap.Logger) error {
	provider, err := newProvider(db, driver)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		log.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}

	return nil
}

// Version returns the current schema version for driver.
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	provider, err := newProvider(db, driver)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

func newProvider(db *sql.DB, driver string) (*goose.Provider, error) {
	dialect, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}

	fsys, err := fs.Sub(embedded, "sql/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations for %s: %w", driver, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}
