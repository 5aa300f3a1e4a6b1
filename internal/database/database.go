// Package database keeps a game server's durable state in one SQLite file.
//
// The schema holds the ruleset and world libraries that games are created
// from, the savegames themselves, the binding of each hosting server to the
// game it runs, player tokens, and an append-only history of turns and
// administrative actions per game. World and savegame rows carry their
// state as compressed JSON with a checksum (see codec.go); everything else
// is plain columns. Deleting a savegame cascades to its server binding and
// history.
//
// Callers that want cached, copy-on-read access to games should go through
// Repository rather than DB.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// pragmas are set on every connection. Cascading deletes depend on
// foreign_keys.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
}

// DB is the game database. Statements share a single connection, so a turn
// being saved never races an admin command for the write lock.
type DB struct {
	conn *sqlx.DB
}

// New opens the database at path, creating the file and its directory on
// first use, and applies any pending migrations.
func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma="+strings.Join(pragmas, "&_pragma="))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate brings the schema up to the last entry of migrations. Migrations
// are numbered in order; anything above the highest recorded id is applied.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	var version int
	if err := db.conn.Get(&version, `SELECT COALESCE(MAX(id), 0) FROM migrations`); err != nil {
		return err
	}
	for _, m := range migrations {
		if m.id <= version {
			continue
		}
		if err := db.apply(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.id, m.name, err)
		}
	}
	return nil
}

// apply runs a migration and records it in the same transaction.
func (db *DB) apply(m migration) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.sql); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO migrations (id, name) VALUES (?, ?)`, m.id, m.name); err != nil {
		return err
	}
	return tx.Commit()
}
