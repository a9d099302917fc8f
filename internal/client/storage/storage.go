// Package storage opens the local SQLite store, applies its migrations and
// bundles the per-table repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/client/migrations"
	"github.com/dmitrijs2005/spendsync/internal/client/repositories/alerts"
	"github.com/dmitrijs2005/spendsync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/spendsync/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/spendsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/spendsync/internal/client/repositories/tombstones"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repos groups the repositories bound to one dbx.DBTX.
type Repos struct {
	Expenses   expenses.Repository
	Budgets    budgets.Repository
	Alerts     alerts.Repository
	Tombstones tombstones.Repository
	Metadata   metadata.Repository
}

func Bind(db dbx.DBTX) Repos {
	return Repos{
		Expenses:   expenses.NewSQLiteRepository(db),
		Budgets:    budgets.NewSQLiteRepository(db),
		Alerts:     alerts.NewSQLiteRepository(db),
		Tombstones: tombstones.NewSQLiteRepository(db),
		Metadata:   metadata.NewSQLiteRepository(db),
	}
}

// Store is the local store. Its Repos are bound to the database handle.
type Store struct {
	Repos
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{Repos: Bind(db), db: db}
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the SQLite database at dsn and migrates it.
// A single connection is used so that ":memory:" databases work and writers
// never hit SQLITE_BUSY.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// InTx runs fn with repositories bound to a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, Bind(tx))
	})
}

// DeleteBudget removes a budget together with all of its alerts in one
// transaction. A missing budget yields common.ErrNotFound.
func (s *Store) DeleteBudget(ctx context.Context, ownerID, id string) error {
	return s.InTx(ctx, func(ctx context.Context, r Repos) error {
		if _, err := r.Budgets.Get(ctx, ownerID, id); err != nil {
			return err
		}
		if _, err := r.Alerts.DeleteByBudget(ctx, ownerID, id); err != nil {
			return err
		}
		_, err := r.Budgets.Delete(ctx, ownerID, id)
		return err
	})
}

// Snapshot writes a consistent copy of the database to path.
func (s *Store) Snapshot(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("failed to snapshot local store: %w", err)
	}
	return nil
}
