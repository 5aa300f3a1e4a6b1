package game

import (
	"encoding/json"
	"testing"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

var (
	northern = map[string]string{"Culture": "Northern", "Religion": "Old Faith"}
	southern = map[string]string{"Culture": "Southern", "Religion": "New Faith"}
)

func newTestRule(t *testing.T) *gamerule.Gamerule {
	t.Helper()
	rules, err := gamerule.Load("../gamerule/testdata/standard.yaml")
	if err != nil {
		t.Fatalf("Failed to load ruleset: %v", err)
	}
	return rules
}

// newTestWorld builds T0(0,0) - T1(10,0) - T2(10,10) plus an isolated T3.
// T1 holds 6 Iron and one Ore node.
func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	ts := []*world.Territory{
		{ID: 0, Name: "T0", Position: world.Point{X: 0, Y: 0}},
		{ID: 1, Name: "T1", Position: world.Point{X: 10, Y: 0},
			Resources: map[string]float64{"Iron": 6}, Nodes: map[string]int{"Ore": 1}},
		{ID: 2, Name: "T2", Position: world.Point{X: 10, Y: 10}},
		{ID: 3, Name: "T3", Position: world.Point{X: 50, Y: 50}},
	}
	world.Connect(ts[0], ts[1], 10)
	world.Connect(ts[1], ts[2], 10)
	w, err := world.New("test", ts)
	if err != nil {
		t.Fatalf("world.New failed: %v", err)
	}
	return w
}

// newTestSession sets up Alpha owning T0 and T1 and Beta owning T2, each
// with some population and no resources.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	save, err := NewSavegame("test game", "server-1", "standard", "test", Date{Month: 1, Year: 1200})
	if err != nil {
		t.Fatalf("NewSavegame failed: %v", err)
	}
	s, err := NewSession(newTestRule(t), newTestWorld(t), save, 2)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	mustOK(t, s.AddNation("Alpha", "role-a", "#ff0000"))
	mustOK(t, s.AddNation("Beta", "role-b", "#0000ff"))
	mustOK(t, s.TransferTerritory("T0", "Alpha"))
	mustOK(t, s.TransferTerritory("T1", "Alpha"))
	mustOK(t, s.TransferTerritory("T2", "Beta"))
	mustOK(t, s.AddPopulation("Alpha", "T0", "Farmer", northern, 1000))
	mustOK(t, s.AddPopulation("Alpha", "T1", "Miner", southern, 500))
	mustOK(t, s.AddPopulation("Beta", "T2", "Farmer", northern, 800))
	return s
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func nation(t *testing.T, s *Session, name string) *Nation {
	t.Helper()
	n, err := s.Save.Nation(name)
	if err != nil {
		t.Fatalf("Nation(%s) failed: %v", name, err)
	}
	return n
}

func snapshot(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(data)
}
