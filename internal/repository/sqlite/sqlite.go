// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. The schema lives in migrations/*.sql, embedded into the
// binary and applied with goose at startup.
//
// One *DB is opened at process start, shared by every request, and closed at
// process stop. sql.DB is itself a connection pool and safe for concurrent use.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/resource-hub/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a sql.DB connection pool and hands out per-collection repositories.
type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
//
// Every pooled connection gets WAL journaling, foreign keys and a busy
// timeout through _pragma DSN parameters, so concurrent requests wait on a
// locked database instead of failing immediately.
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return "file:" + dbPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db.conn, "migrations")
}

// Users returns the users collection.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Resources returns the resources collection.
func (db *DB) Resources() *ResourceDB { return &ResourceDB{conn: db.conn} }

// Events returns the events collection.
func (db *DB) Events() *EventDB { return &EventDB{conn: db.conn} }

// Ratings returns the ratings collection.
func (db *DB) Ratings() *RatingDB { return &RatingDB{conn: db.conn} }

var (
	_ repository.UserRepository     = (*UserDB)(nil)
	_ repository.ResourceRepository = (*ResourceDB)(nil)
	_ repository.EventRepository    = (*EventDB)(nil)
	_ repository.RatingRepository   = (*RatingDB)(nil)
)

// isUniqueViolation reports whether err is a UNIQUE (or PRIMARY KEY) constraint failure.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > repository.MaxListLimit {
		return repository.MaxListLimit
	}
	return limit
}
