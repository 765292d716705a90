package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver with FTS5
)

// SQLExecutor runs payloads against a database/sql connection. The local
// mirror uses it with SQLite; any driver accepting multi-statement Exec works.
type SQLExecutor struct {
	DB *sql.DB
}

// Execute runs the payload as a single Exec call
func (e *SQLExecutor) Execute(ctx context.Context, sql string) error {
	if _, err := e.DB.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// OpenMirror opens (creating if needed) the local SQLite mirror at path
func OpenMirror(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create mirror directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror '%s': %w", path, err)
	}
	// One connection keeps PRAGMAs and schema changes on the same handle.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mirror '%s': %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure mirror '%s' (%s): %w", path, pragma, err)
		}
	}
	return db, nil
}

// MirrorOpener returns an opener for Syncer.OpenMirror backed by the SQLite
// file at path
func MirrorOpener(path string) func(ctx context.Context) (Executor, func(), error) {
	return func(ctx context.Context) (Executor, func(), error) {
		db, err := OpenMirror(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return &SQLExecutor{DB: db}, func() { db.Close() }, nil
	}
}
