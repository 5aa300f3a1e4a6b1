// Package world holds the territory graph a game is played on.
// Territories are created at generation time and never change structurally;
// ownership lives in the game state, not here.
package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

var (
	ErrUnknownTerritory = errors.New("unknown territory")
	ErrUnreachable      = errors.New("territory unreachable")
	ErrInvalidWorld     = errors.New("invalid world")
)

// Point is a 2-D map position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Territory is a vertex of the world graph.
type Territory struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position Point  `json:"position"`
	// Neighbors maps a neighbor's id to the edge distance.
	Neighbors map[int]float64 `json:"neighbors"`
	Terrain   string          `json:"terrain"`
	Details   []string        `json:"details,omitempty"`
	// Resources is the monthly pool that mining buildings draw from.
	Resources map[string]float64 `json:"resources,omitempty"`
	// Nodes is the number of extraction slots per node type.
	Nodes map[string]int `json:"nodes,omitempty"`
}

// World is the ordered list of territories. A territory's id is its index.
type World struct {
	Name        string       `json:"name"`
	Territories []*Territory `json:"territories"`

	byName map[string]*Territory
}

// New builds and validates a world from its territories.
func New(name string, territories []*Territory) (*World, error) {
	w := &World{Name: name, Territories: territories}
	if err := w.index(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Parse decodes a world from JSON and validates it.
func Parse(data []byte) (*World, error) {
	var raw World
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse world JSON: %w", err)
	}
	return New(raw.Name, raw.Territories)
}

// Load reads a world file from disk.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return Parse(data)
}

// UnmarshalJSON decodes a world and indexes its territory names.
func (w *World) UnmarshalJSON(data []byte) error {
	type plain World
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = World(raw)
	return w.index()
}

// Marshal encodes the world as JSON.
func (w *World) Marshal() ([]byte, error) {
	return json.Marshal(w)
}

func (w *World) index() error {
	w.byName = make(map[string]*Territory, len(w.Territories))
	for i, t := range w.Territories {
		if t == nil {
			return fmt.Errorf("%w: territory %d is missing", ErrInvalidWorld, i)
		}
		if t.Name == "" {
			return fmt.Errorf("%w: territory %d has no name", ErrInvalidWorld, i)
		}
		if _, dup := w.byName[t.Name]; dup {
			return fmt.Errorf("%w: duplicate territory name %q", ErrInvalidWorld, t.Name)
		}
		w.byName[t.Name] = t
	}
	return nil
}

// Validate checks id stability and edge symmetry.
func (w *World) Validate() error {
	for i, t := range w.Territories {
		if t.ID != i {
			return fmt.Errorf("%w: territory %q has id %d at index %d", ErrInvalidWorld, t.Name, t.ID, i)
		}
		for nid, d := range t.Neighbors {
			if nid < 0 || nid >= len(w.Territories) || nid == i {
				return fmt.Errorf("%w: territory %q has invalid neighbor %d", ErrInvalidWorld, t.Name, nid)
			}
			if d <= 0 {
				return fmt.Errorf("%w: edge %d-%d has non-positive distance", ErrInvalidWorld, i, nid)
			}
			back, ok := w.Territories[nid].Neighbors[i]
			if !ok || back != d {
				return fmt.Errorf("%w: edge %d-%d is not symmetric", ErrInvalidWorld, i, nid)
			}
		}
	}
	return nil
}

// Territory returns a territory by name. It never writes to the world, so
// concurrent lookups are safe; a world that was not built by New or decoded
// from JSON is searched linearly.
func (w *World) Territory(name string) (*Territory, error) {
	if w.byName != nil {
		if t, ok := w.byName[name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownTerritory, name)
	}
	for _, t := range w.Territories {
		if t != nil && t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTerritory, name)
}

// TerritoryByID returns a territory by id.
func (w *World) TerritoryByID(id int) (*Territory, error) {
	if id < 0 || id >= len(w.Territories) {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownTerritory, id)
	}
	return w.Territories[id], nil
}

// Has reports whether a territory with the given name exists.
func (w *World) Has(name string) bool {
	_, err := w.Territory(name)
	return err == nil
}

// Names returns all territory names in id order.
func (w *World) Names() []string {
	names := make([]string, len(w.Territories))
	for i, t := range w.Territories {
		names[i] = t.Name
	}
	return names
}

// NeighborIDs returns a territory's neighbor ids in ascending order.
func (t *Territory) NeighborIDs() []int {
	ids := make([]int, 0, len(t.Neighbors))
	for id := range t.Neighbors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Connect adds a symmetric edge between two territories.
func Connect(a, b *Territory, distance float64) {
	if a.Neighbors == nil {
		a.Neighbors = make(map[int]float64)
	}
	if b.Neighbors == nil {
		b.Neighbors = make(map[int]float64)
	}
	a.Neighbors[b.ID] = distance
	b.Neighbors[a.ID] = distance
}
