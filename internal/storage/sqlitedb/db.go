// Package sqlitedb provides the relational backends for the snapshot stores
// and the restore index, built on a single shared sqlite pool.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the sqlite database at path and applies the
// connection pragmas the snapshot stores rely on.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// beginImmediate starts an IMMEDIATE transaction on a dedicated connection,
// retrying on SQLITE_BUSY. Raw Exec because database/sql has no transaction
// modes and modernc.org/sqlite's BeginTx is always DEFERRED.
func beginImmediate(ctx context.Context, conn *sql.Conn) error {
	backoff := 10 * time.Millisecond
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if _, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("failed to begin immediate transaction: %w", err)
}
