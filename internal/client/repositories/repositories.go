// Package repositories wires the client's local SQLite database: it runs
// the embedded goose migrations and constructs the repository set.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/photovault/internal/client/migrations"
	"github.com/dmitrijs2005/photovault/internal/client/repositories/history"
)

type Repositories struct {
	History history.Repository

	db *sql.DB
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the local database at dsn, migrates it,
// and returns the repository set. The caller owns Close.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repositories{
		History: history.NewSQLiteRepository(db),
		db:      db,
	}, nil
}

func (r *Repositories) Close() error {
	return r.db.Close()
}
