package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Player is a connection identity. Its ID is the role token nations are bound
// to.
type Player struct {
	ID         string    `db:"id"`
	Token      string    `db:"token"`
	Name       string    `db:"name"`
	CreatedAt  time.Time `db:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at"`
}

// ErrPlayerNotFound is returned when a player is not found.
var ErrPlayerNotFound = errors.New("player not found")

// CreatePlayer creates a new player with a generated token.
func (db *DB) CreatePlayer(name string) (*Player, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &Player{
		ID:         uuid.New().String(),
		Token:      token,
		Name:       name,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	_, err = db.conn.NamedExec(`
		INSERT INTO players (id, token, name, created_at, last_seen_at)
		VALUES (:id, :token, :name, :created_at, :last_seen_at)
	`, p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlayerByToken retrieves a player by their token.
func (db *DB) GetPlayerByToken(token string) (*Player, error) {
	return db.getPlayer("token", token)
}

// GetPlayerByID retrieves a player by their ID.
func (db *DB) GetPlayerByID(id string) (*Player, error) {
	return db.getPlayer("id", id)
}

func (db *DB) getPlayer(column, value string) (*Player, error) {
	var p Player
	err := db.conn.Get(&p, `
		SELECT id, token, name, created_at, last_seen_at
		FROM players WHERE `+column+` = ?
	`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePlayerLastSeen updates the last seen timestamp.
func (db *DB) UpdatePlayerLastSeen(id string) error {
	_, err := db.conn.Exec(`UPDATE players SET last_seen_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// generateToken creates a random 32-byte hex token.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
