package database

import (
	"sync"

	"grand-strategy/internal/game"
	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// Repository caches rulesets, worlds and savegames loaded by name. Saving
// through the repository replaces the cached copy; Invalidate drops it.
type Repository struct {
	db *DB

	mu     sync.Mutex
	rules  map[string]*gamerule.Gamerule
	worlds map[string]*world.World
	games  map[string]*game.Savegame
}

// NewRepository creates an empty cache in front of db.
func NewRepository(db *DB) *Repository {
	return &Repository{
		db:     db,
		rules:  make(map[string]*gamerule.Gamerule),
		worlds: make(map[string]*world.World),
		games:  make(map[string]*game.Savegame),
	}
}

// DB returns the underlying database.
func (r *Repository) DB() *DB {
	return r.db
}

// Ruleset returns a ruleset, loading it on first use. Rulesets are read-only
// so the cached value is shared.
func (r *Repository) Ruleset(name string) (*gamerule.Gamerule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.rules[name]; ok {
		return g, nil
	}
	g, err := r.db.GetRuleset(name)
	if err != nil {
		return nil, err
	}
	r.rules[name] = g
	return g, nil
}

// SaveRuleset stores a ruleset and refreshes the cache.
func (r *Repository) SaveRuleset(g *gamerule.Gamerule) error {
	if err := r.db.SaveRuleset(g); err != nil {
		return err
	}
	r.mu.Lock()
	r.rules[g.Name] = g
	r.mu.Unlock()
	return nil
}

// World returns a world, loading it on first use. Worlds are read-only so the
// cached value is shared.
func (r *Repository) World(name string) (*world.World, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.worlds[name]; ok {
		return w, nil
	}
	w, err := r.db.GetWorld(name)
	if err != nil {
		return nil, err
	}
	r.worlds[name] = w
	return w, nil
}

// SaveWorld stores a world and refreshes the cache.
func (r *Repository) SaveWorld(w *world.World) error {
	if err := r.db.SaveWorld(w); err != nil {
		return err
	}
	r.mu.Lock()
	r.worlds[w.Name] = w
	r.mu.Unlock()
	return nil
}

// Game returns a private copy of a savegame. Changes are only visible to
// other callers after SaveGame.
func (r *Repository) Game(id string) (*game.Savegame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.games[id]; ok {
		return s.Clone(), nil
	}
	s, err := r.db.GetGame(id)
	if err != nil {
		return nil, err
	}
	r.games[id] = s
	return s.Clone(), nil
}

// SaveGame persists a savegame and replaces the cached copy.
func (r *Repository) SaveGame(s *game.Savegame) error {
	if err := r.db.SaveGame(s); err != nil {
		r.Invalidate(s.ID)
		return err
	}
	r.mu.Lock()
	r.games[s.ID] = s.Clone()
	r.mu.Unlock()
	return nil
}

// Invalidate drops a cached savegame.
func (r *Repository) Invalidate(id string) {
	r.mu.Lock()
	delete(r.games, id)
	r.mu.Unlock()
}

// Session loads a savegame with its ruleset and world.
func (r *Repository) Session(id string, workers int) (*game.Session, error) {
	s, err := r.Game(id)
	if err != nil {
		return nil, err
	}
	rules, err := r.Ruleset(s.Ruleset)
	if err != nil {
		return nil, err
	}
	w, err := r.World(s.World)
	if err != nil {
		return nil, err
	}
	return game.NewSession(rules, w, s, workers)
}

// SessionForServer loads the game owned by a server.
func (r *Repository) SessionForServer(serverID string, workers int) (*game.Session, error) {
	id, err := r.db.GetGameIDForServer(serverID)
	if err != nil {
		return nil, err
	}
	return r.Session(id, workers)
}
