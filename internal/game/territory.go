package game

import (
	"grand-strategy/internal/world"
)

// BuildingInstance is one copy of a building in a territory.
type BuildingInstance struct {
	Status Status `json:"status"`
}

// NodeUsage tracks extraction slots of one node type.
type NodeUsage struct {
	Used     int `json:"used"`
	Capacity int `json:"capacity"`
}

// TerritoryState is the nation-scoped state of an owned territory.
type TerritoryState struct {
	Buildings  map[string][]BuildingInstance `json:"buildings"`
	Population Population                    `json:"population"`
	Nodes      map[string]NodeUsage          `json:"nodes"`
}

// NewTerritoryState creates empty state for a freshly owned territory.
func NewTerritoryState(t *world.Territory) *TerritoryState {
	ts := &TerritoryState{
		Buildings: make(map[string][]BuildingInstance),
		Nodes:     make(map[string]NodeUsage),
	}
	for node, capacity := range t.Nodes {
		ts.Nodes[node] = NodeUsage{Capacity: capacity}
	}
	return ts
}

// Count returns the number of instances of a building, in any status.
func (ts *TerritoryState) Count(building string) int {
	return len(ts.Buildings[building])
}

// Has reports whether the territory has the building, optionally only
// counting Active instances.
func (ts *TerritoryState) Has(building string, activeOnly bool) bool {
	for _, b := range ts.Buildings[building] {
		if !activeOnly || b.Status.IsActive() {
			return true
		}
	}
	return false
}

// ActiveBuildings returns the names of active building instances, one entry
// per instance, in name order.
func (ts *TerritoryState) ActiveBuildings() []string {
	var names []string
	for _, name := range sortedKeys(ts.Buildings) {
		for _, b := range ts.Buildings[name] {
			if b.Status.IsActive() {
				names = append(names, name)
			}
		}
	}
	return names
}

// ConstructingBuildings lists one name per instance under construction.
func (ts *TerritoryState) ConstructingBuildings() []string {
	var names []string
	for _, name := range sortedKeys(ts.Buildings) {
		for _, b := range ts.Buildings[name] {
			if b.Status.IsConstructing() {
				names = append(names, name)
			}
		}
	}
	return names
}

// Manpower returns the mobilized population.
func (ts *TerritoryState) Manpower() int {
	return ts.Population.Manpower()
}

// Headroom returns the unmobilized population available for recruitment.
func (ts *TerritoryState) Headroom() int {
	return ts.Population.Headroom()
}

// nodesFree checks whether the node costs fit.
func (ts *TerritoryState) nodesFree(costs map[string]int) (string, bool) {
	for _, node := range sortedKeys(costs) {
		u := ts.Nodes[node]
		if u.Used+costs[node] > u.Capacity {
			return node, false
		}
	}
	return "", true
}

func (ts *TerritoryState) useNodes(costs map[string]int, sign int) {
	for node, n := range costs {
		u := ts.Nodes[node]
		u.Used += sign * n
		if u.Used < 0 {
			u.Used = 0
		}
		ts.Nodes[node] = u
	}
}
