// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs no
// C toolchain. The package exposes one DB (the connection pool and migrations)
// and two stores on top of it: Users() and Playlists().
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/neurotune.db" → file-based database
//   - ":memory:"          → in-memory database (tests)
//
// Every pooled connection to ":memory:" would see its own empty database, so
// the in-memory pool is pinned to a single connection.
func New(dbPath string) (*DB, error) {
	inMemory := dbPath == ":memory:"

	dsn := dbPath
	if !inMemory {
		// Pragmas in the DSN apply to every connection the pool opens.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if inMemory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
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

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the credential store backed by this database.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Playlists returns the playlist store backed by this database.
func (db *DB) Playlists() *PlaylistDB {
	return &PlaylistDB{conn: db.conn}
}

// Migrate runs all migrations. New already does this; the method exists so
// the CLI can migrate a database without starting the server.
func (db *DB) Migrate() error {
	return db.migrate()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                    TEXT PRIMARY KEY,
			username              TEXT NOT NULL UNIQUE,
			email                 TEXT NOT NULL UNIQUE,
			password_hash         TEXT NOT NULL,
			spotify_id            TEXT NOT NULL DEFAULT '',
			spotify_access_token  TEXT NOT NULL DEFAULT '',
			spotify_refresh_token TEXT NOT NULL DEFAULT '',
			preferences           TEXT,
			created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// tracks and parameters are JSON documents; nothing queries into them.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS playlists (
			id                  TEXT PRIMARY KEY,
			owner_id            TEXT NOT NULL,
			name                TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			type                TEXT NOT NULL CHECK (type IN ('artist', 'mood', 'genre')),
			tracks              TEXT NOT NULL DEFAULT '[]',
			parameters          TEXT NOT NULL DEFAULT '{}',
			spotify_playlist_id TEXT NOT NULL DEFAULT '',
			spotify_url         TEXT NOT NULL DEFAULT '',
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_playlists_owner_created ON playlists(owner_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating playlists table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on column
// (e.g. "users.email").
func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
