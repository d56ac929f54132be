// Package sqlite opens SQLite database connections with the pragmas
// the engine relies on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Open opens a SQLite database at the given path.
//
// Pragmas:
//   - journal_mode=WAL: Write-Ahead Logging for better concurrency
//   - foreign_keys=ON: enforce foreign key constraints
//   - busy_timeout=5000: wait 5s on lock instead of failing immediately
//   - synchronous=NORMAL: good balance of safety and speed
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "bookhive.db"
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite doesn't support multiple writers, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return db, nil
}
