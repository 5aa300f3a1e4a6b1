package database

import (
	"database/sql"
	"errors"
	"fmt"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

var (
	// ErrRulesetNotFound is returned when a ruleset is not found.
	ErrRulesetNotFound = errors.New("ruleset not found")
	// ErrWorldNotFound is returned when a world is not found.
	ErrWorldNotFound = errors.New("world not found")
)

// SaveRuleset stores a ruleset under its name, replacing any previous version.
func (db *DB) SaveRuleset(g *gamerule.Gamerule) error {
	source, err := g.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal ruleset: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO rulesets (name, source) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source
	`, g.Name, string(source))
	return err
}

// GetRuleset loads and validates a ruleset.
func (db *DB) GetRuleset(name string) (*gamerule.Gamerule, error) {
	var source string
	err := db.conn.Get(&source, `SELECT source FROM rulesets WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrRulesetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return gamerule.Parse([]byte(source))
}

// ListRulesets returns all ruleset names.
func (db *DB) ListRulesets() ([]string, error) {
	var names []string
	err := db.conn.Select(&names, `SELECT name FROM rulesets ORDER BY name`)
	return names, err
}

// SaveWorld stores a world under its name, replacing any previous version.
func (db *DB) SaveWorld(w *world.World) error {
	blob, sum, err := encode(w)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT INTO worlds (name, territories, data, checksum) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			territories = excluded.territories, data = excluded.data, checksum = excluded.checksum
	`, w.Name, len(w.Territories), blob, sum)
	return err
}

// GetWorld loads and validates a world.
func (db *DB) GetWorld(name string) (*world.World, error) {
	var row struct {
		Data     []byte `db:"data"`
		Checksum string `db:"checksum"`
	}
	err := db.conn.Get(&row, `SELECT data, checksum FROM worlds WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrWorldNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var raw world.World
	if err := decode(row.Data, row.Checksum, &raw); err != nil {
		return nil, fmt.Errorf("world %q: %w", name, err)
	}
	return world.New(raw.Name, raw.Territories)
}

// WorldInfo is a world listing entry.
type WorldInfo struct {
	Name        string `db:"name"`
	Territories int    `db:"territories"`
}

// ListWorlds returns all stored worlds.
func (db *DB) ListWorlds() ([]WorldInfo, error) {
	var worlds []WorldInfo
	err := db.conn.Select(&worlds, `SELECT name, territories FROM worlds ORDER BY name`)
	return worlds, err
}
