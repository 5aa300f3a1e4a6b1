package database

import (
	"time"

	"grand-strategy/internal/game"
)

// HistoryEvent is a single entry in a game's audit log.
type HistoryEvent struct {
	ID        int64     `db:"id" json:"id"`
	GameID    string    `db:"game_id" json:"game_id"`
	Turn      int       `db:"turn" json:"turn"`
	Month     int       `db:"month" json:"month"`
	Year      int       `db:"year" json:"year"`
	Nation    string    `db:"nation" json:"nation,omitempty"`
	EventType string    `db:"event_type" json:"event_type"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Event types for game history
const (
	EventTurnAdvanced = "turn_advanced"
	EventTransfer     = "territory_transferred"
	EventIntercept    = "force_intercepted"
	EventNationAdded  = "nation_added"
	EventCommand      = "command"
)

// AddHistoryEvent appends an event stamped with the game's current turn and date.
func (db *DB) AddHistoryEvent(s *game.Savegame, nation, eventType, message string) error {
	_, err := db.conn.Exec(`
		INSERT INTO history (game_id, turn, month, year, nation, event_type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Turn, s.Date.Month, s.Date.Year, nation, eventType, message, time.Now())
	return err
}

// GetGameHistory retrieves all history events for a game, ordered chronologically.
func (db *DB) GetGameHistory(gameID string) ([]*HistoryEvent, error) {
	return db.GetGameHistorySince(gameID, 0)
}

// GetGameHistorySince retrieves history events after a given ID (for incremental updates).
func (db *DB) GetGameHistorySince(gameID string, afterID int64) ([]*HistoryEvent, error) {
	var events []*HistoryEvent
	err := db.conn.Select(&events, `
		SELECT id, game_id, turn, month, year, nation, event_type, message, created_at
		FROM history
		WHERE game_id = ? AND id > ?
		ORDER BY id ASC
	`, gameID, afterID)
	return events, err
}
