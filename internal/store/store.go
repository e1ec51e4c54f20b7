// Package store persists dashboards and widgets in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a dashboard or widget does not exist.
var ErrNotFound = errors.New("not found")

// Store is the SQLite backed dashboard repository.
// All writes go through a single connection so a transaction is never
// observed half applied.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logrus.WithField("path", path).Info("Dashboard store opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dashboards (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_public   INTEGER NOT NULL DEFAULT 0,
			layout_json TEXT NOT NULL DEFAULT '[]',
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dashboards_user ON dashboards(user_id, updated_at)`,

		`CREATE TABLE IF NOT EXISTS widgets (
			id                TEXT PRIMARY KEY,
			dashboard_id      TEXT NOT NULL REFERENCES dashboards(id) ON DELETE CASCADE,
			type              TEXT NOT NULL,
			title             TEXT NOT NULL DEFAULT '',
			data_source       TEXT NOT NULL,
			params_json       TEXT NOT NULL DEFAULT '{}',
			chart_config_json TEXT NOT NULL DEFAULT '{}',
			position          INTEGER NOT NULL DEFAULT 0,
			created_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_widgets_dashboard ON widgets(dashboard_id, position)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if errRB := tx.Rollback(); errRB != nil {
			logrus.WithError(errRB).Error("Transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) timestamp() int64 {
	return s.now().UTC().UnixNano()
}

func fromTimestamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// touch bumps updated_at of a dashboard and reports ErrNotFound when it is gone.
func (s *Store) touch(ctx context.Context, tx *sql.Tx, dashboardID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE dashboards SET updated_at = ? WHERE id = ?`, s.timestamp(), dashboardID)
	if err != nil {
		return fmt.Errorf("touch dashboard: %w", err)
	}
	return expectRow(res)
}

// requireDashboard reports ErrNotFound when the dashboard does not exist.
func requireDashboard(ctx context.Context, tx *sql.Tx, id string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM dashboards WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("query dashboard: %w", err)
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
