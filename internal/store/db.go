// Package store opens and migrates the habitd SQLite database.
// Domain packages (event, habit, suggestion, preference) receive the
// *sql.DB handle and own their tables; this package owns the schema,
// pragmas, and the engine_setting table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrClosed is returned when an operation is attempted on a closed database.
var ErrClosed = errors.New("store: database is closed")

// DB wraps the SQLite connection for the habitd engine.
type DB struct {
	db        *sql.DB
	dbPath    string
	closeOnce sync.Once
	closeErr  error
}

// DefaultPath returns the default database path (~/.habitd/habitd.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".habitd", "habitd.db"), nil
}

// Open opens the database at path (or the default path when empty),
// applies pragmas, and runs migrations. The caller must Close it.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) DSN syntax.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite behaves best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db, dbPath: path}, nil
}

// migrate applies the schema and records the version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	if current < SchemaVersion {
		_, err = db.ExecContext(ctx,
			"INSERT OR IGNORE INTO schema_migrations (version, applied_ms) VALUES (?, ?)",
			SchemaVersion, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}

// Handle returns the underlying *sql.DB for domain stores.
func (d *DB) Handle() *sql.DB {
	return d.db
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// Close closes the database. It is idempotent.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		// Best-effort WAL checkpoint before closing.
		_, _ = d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}
