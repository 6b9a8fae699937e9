// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// The whole application state is two small tables. An embedded database keeps
// it in a single file under DATA_PATH that can be copied, backed up with
// `notes db backup`, and opened with ":memory:" in tests.
//
// modernc.org/sqlite is a pure Go translation of the SQLite C code, so the
// binary builds without a C toolchain.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB:   a connection pool (NOT a single connection!)
//   - sql.Row:  a single result row
//   - sql.Rows: multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements both repository.UserRepository and repository.NoteRepository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "/var/lib/notes/notes.db" → file-based database (persistent)
//   - ":memory:"                → in-memory database (tests)
//
// PRAGMAS IN THE DSN:
// PRAGMA statements apply per connection. Passing them as _pragma query
// parameters makes the driver run them on every connection it opens,
// including ones the pool creates later.
//
// SINGLE CONNECTION:
// Each connection to ":memory:" is a separate, empty database, and SQLite
// allows one writer at a time anyway, so the pool is capped at one
// connection.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. For ":memory:"
	// SQLite silently keeps its own journal mode.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
//
// Timestamps are stored as INTEGER Unix nanoseconds in UTC so that ORDER BY
// compares numbers, not formatted strings.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user (
			id           TEXT PRIMARY KEY,
			handle       TEXT,
			name         TEXT NOT NULL,
			github_id    INTEGER UNIQUE,
			github_login TEXT,
			created_at   INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS note (
			id        TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			content   TEXT NOT NULL,
			author_id TEXT NOT NULL REFERENCES user(id)
		);
		CREATE INDEX IF NOT EXISTS idx_note_timestamp ON note(timestamp);
		CREATE INDEX IF NOT EXISTS idx_note_author_id ON note(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating note table: %w", err)
	}

	return nil
}

// constraintCode returns the extended SQLite result code of a constraint
// violation, or 0 if err is not one.
func constraintCode(err error) int {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return 0
	}
	code := se.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return 0
	}
	if code == sqlite3.SQLITE_CONSTRAINT {
		// Primary code only; recover the kind from the message.
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return sqlite3.SQLITE_CONSTRAINT_UNIQUE
		case strings.Contains(msg, "FOREIGN KEY"):
			return sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
		}
	}
	return code
}

func isUniqueViolation(err error) bool {
	code := constraintCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
