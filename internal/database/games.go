package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"grand-strategy/internal/game"
)

// GameInfo contains basic game information for listings.
type GameInfo struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Ruleset   string    `db:"ruleset" json:"ruleset"`
	World     string    `db:"world" json:"world"`
	Turn      int       `db:"turn" json:"turn"`
	Month     int       `db:"month" json:"month"`
	Year      int       `db:"year" json:"year"`
	Server    string    `db:"server_id" json:"server,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ErrGameNotFound is returned when a game is not found.
var ErrGameNotFound = errors.New("game not found")

// ErrServerBound is returned when a server already owns a different game.
var ErrServerBound = errors.New("server already has a game")

// SaveGame inserts or replaces a savegame and its server binding.
func (db *DB) SaveGame(s *game.Savegame) error {
	blob, sum, err := encode(s)
	if err != nil {
		return err
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO savegames (id, name, ruleset, world, turn, month, year, data, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, turn = excluded.turn, month = excluded.month, year = excluded.year,
			data = excluded.data, checksum = excluded.checksum, updated_at = excluded.updated_at
	`, s.ID, s.Name, s.Ruleset, s.World, s.Turn, s.Date.Month, s.Date.Year, blob, sum, now, now)
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}

	if s.Server != "" {
		var bound string
		err := tx.Get(&bound, `SELECT game_id FROM servers WHERE server_id = ?`, s.Server)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.Exec(`INSERT INTO servers (server_id, game_id) VALUES (?, ?)`, s.Server, s.ID); err != nil {
				return fmt.Errorf("failed to bind server: %w", err)
			}
		case err != nil:
			return err
		case bound != s.ID:
			return fmt.Errorf("%w: %q is bound to %s", ErrServerBound, s.Server, bound)
		}
	}

	return tx.Commit()
}

// GetGame loads a savegame by ID.
func (db *DB) GetGame(id string) (*game.Savegame, error) {
	var row struct {
		Data     []byte `db:"data"`
		Checksum string `db:"checksum"`
	}
	err := db.conn.Get(&row, `SELECT data, checksum FROM savegames WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	var s game.Savegame
	if err := decode(row.Data, row.Checksum, &s); err != nil {
		return nil, fmt.Errorf("game %s: %w", id, err)
	}
	return &s, nil
}

// GetGameIDForServer resolves the game owned by a server.
func (db *DB) GetGameIDForServer(serverID string) (string, error) {
	var id string
	err := db.conn.Get(&id, `SELECT game_id FROM servers WHERE server_id = ?`, serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrGameNotFound
	}
	return id, err
}

// UnbindServer detaches a server from its game. The game is kept.
func (db *DB) UnbindServer(serverID string) error {
	res, err := db.conn.Exec(`DELETE FROM servers WHERE server_id = ?`, serverID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGameNotFound
	}
	return nil
}

// ListGames returns all savegames, most recently updated first.
func (db *DB) ListGames() ([]GameInfo, error) {
	var games []GameInfo
	err := db.conn.Select(&games, `
		SELECT g.id, g.name, g.ruleset, g.world, g.turn, g.month, g.year,
			COALESCE(s.server_id, '') AS server_id, g.updated_at
		FROM savegames g
		LEFT JOIN servers s ON s.game_id = g.id
		ORDER BY g.updated_at DESC, g.id
	`)
	return games, err
}

// DeleteGame removes a savegame with its bindings and history.
func (db *DB) DeleteGame(id string) error {
	res, err := db.conn.Exec(`DELETE FROM savegames WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGameNotFound
	}
	return nil
}
