package world

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
)

// newTestWorld builds T0(0,0) - T1(10,0) - T2(10,10) plus an isolated T3.
func newTestWorld(t *testing.T) *World {
	t.Helper()
	ts := []*Territory{
		{ID: 0, Name: "T0", Position: Point{0, 0}},
		{ID: 1, Name: "T1", Position: Point{10, 0}},
		{ID: 2, Name: "T2", Position: Point{10, 10}},
		{ID: 3, Name: "T3", Position: Point{50, 50}},
	}
	Connect(ts[0], ts[1], 10)
	Connect(ts[1], ts[2], 10)
	w, err := New("test", ts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w
}

func TestPathToScenario(t *testing.T) {
	w := newTestWorld(t)

	path, err := w.PathTo("T0", "T2")
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	if len(path) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(path))
	}
	if path[0].Name != "T1" || path[0].Distance != 10 || path[0].Cumulative != 10 {
		t.Errorf("Unexpected first step %+v", path[0])
	}
	if path[1].Name != "T2" || path[1].Distance != 10 || path[1].Cumulative != 20 {
		t.Errorf("Unexpected second step %+v", path[1])
	}
}

func TestPathToSelfIsEmpty(t *testing.T) {
	w := newTestWorld(t)

	path, err := w.PathTo("T1", "T1")
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	if len(path) != 0 {
		t.Errorf("Expected empty path, got %v", path)
	}
}

func TestPathToFailures(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.PathTo("T0", "T3")
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got %v", err)
	}
	if errors.Is(err, ErrUnknownTerritory) {
		t.Error("Unreachable must be distinct from unknown")
	}

	_, err = w.PathTo("T0", "Atlantis")
	if !errors.Is(err, ErrUnknownTerritory) {
		t.Errorf("Expected ErrUnknownTerritory, got %v", err)
	}
	if _, err := w.PathBetween(0, 99); !errors.Is(err, ErrUnknownTerritory) {
		t.Errorf("Expected ErrUnknownTerritory for bad id, got %v", err)
	}
}

func TestPathPrefersShorterRoute(t *testing.T) {
	ts := []*Territory{
		{ID: 0, Name: "A", Position: Point{0, 0}},
		{ID: 1, Name: "B", Position: Point{5, 5}},
		{ID: 2, Name: "C", Position: Point{5, -5}},
		{ID: 3, Name: "D", Position: Point{10, 0}},
	}
	Connect(ts[0], ts[1], 8)
	Connect(ts[1], ts[3], 8)
	Connect(ts[0], ts[2], 7.1)
	Connect(ts[2], ts[3], 7.1)
	w, err := New("diamond", ts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	path, err := w.PathTo("A", "D")
	if err != nil {
		t.Fatalf("PathTo failed: %v", err)
	}
	if len(path) != 2 || path[0].Name != "C" {
		t.Errorf("Expected route through C, got %+v", path)
	}
}

func TestPathTieBreaksOnLowestID(t *testing.T) {
	ts := []*Territory{
		{ID: 0, Name: "A", Position: Point{0, 0}},
		{ID: 1, Name: "B", Position: Point{5, 5}},
		{ID: 2, Name: "C", Position: Point{5, -5}},
		{ID: 3, Name: "D", Position: Point{10, 0}},
	}
	Connect(ts[0], ts[2], 8)
	Connect(ts[2], ts[3], 8)
	Connect(ts[0], ts[1], 8)
	Connect(ts[1], ts[3], 8)
	w, err := New("tie", ts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		path, err := w.PathTo("A", "D")
		if err != nil {
			t.Fatalf("PathTo failed: %v", err)
		}
		if path[0].Name != "B" {
			t.Fatalf("Expected deterministic route through B, got %s", path[0].Name)
		}
	}
}

func TestValidateRejectsAsymmetricEdges(t *testing.T) {
	ts := []*Territory{
		{ID: 0, Name: "A", Neighbors: map[int]float64{1: 5}},
		{ID: 1, Name: "B", Neighbors: map[int]float64{0: 6}},
	}
	if _, err := New("bad", ts); !errors.Is(err, ErrInvalidWorld) {
		t.Errorf("Expected ErrInvalidWorld, got %v", err)
	}

	dup := []*Territory{{ID: 0, Name: "A"}, {ID: 1, Name: "A"}}
	if _, err := New("dup", dup); !errors.Is(err, ErrInvalidWorld) {
		t.Errorf("Expected ErrInvalidWorld for duplicate names, got %v", err)
	}
}

func TestWorldJSONRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	data, err := w.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	w2, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := w2.Territories[1].Neighbors[2]; got != 10 {
		t.Errorf("Expected neighbor distance 10, got %v", got)
	}
	if _, err := w2.Territory("T2"); err != nil {
		t.Errorf("Expected T2 lookup to work after parse: %v", err)
	}
}

func TestTerritoryLookupIsConcurrent(t *testing.T) {
	built := newTestWorld(t)
	data, err := built.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded World
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.byName == nil {
		t.Error("Expected decoding to index territory names")
	}
	literal := &World{Name: "literal", Territories: built.Territories}

	for _, w := range []*World{&decoded, literal} {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _, name := range []string{"T0", "T1", "T2", "T3"} {
					if tr, err := w.Territory(name); err != nil || tr.Name != name {
						t.Errorf("%s: lookup of %s got %v (%v)", w.Name, name, tr, err)
					}
				}
				if _, err := w.Territory("nowhere"); !errors.Is(err, ErrUnknownTerritory) {
					t.Errorf("%s: expected ErrUnknownTerritory, got %v", w.Name, err)
				}
			}()
		}
		wg.Wait()
	}
	if literal.byName != nil {
		t.Error("Expected lookups to leave an unindexed world unmodified")
	}
}

func TestGenerateIsConnectedAndSymmetric(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	cfg.Territories = 30
	cfg.TerrainWeighted = true

	w, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(w.Territories) != 30 {
		t.Fatalf("Expected 30 territories, got %d", len(w.Territories))
	}

	seen := make(map[string]bool)
	for _, terr := range w.Territories {
		if seen[terr.Name] {
			t.Errorf("Duplicate name %q", terr.Name)
		}
		seen[terr.Name] = true
		for nid, d := range terr.Neighbors {
			euclid := terr.Position.DistanceTo(w.Territories[nid].Position)
			if d+0.01 < math.Round(euclid*100)/100 {
				t.Errorf("Edge %d-%d shorter than straight line: %v < %v", terr.ID, nid, d, euclid)
			}
		}
	}

	last := len(w.Territories) - 1
	if _, err := w.PathBetween(0, last); err != nil {
		t.Errorf("Expected generated world to be connected: %v", err)
	}

	again, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if again.Territories[5].Name != w.Territories[5].Name {
		t.Error("Expected generation to be deterministic for a fixed seed")
	}
}
