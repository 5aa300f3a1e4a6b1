package game

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of the savegame.
func (s *Savegame) Clone() *Savegame {
	out := *s
	out.Nations = make(map[string]*Nation, len(s.Nations))
	for name, n := range s.Nations {
		out.Nations[name] = n.Clone()
	}
	return &out
}

// Clone returns a deep copy of the nation.
func (n *Nation) Clone() *Nation {
	out := *n
	out.Resources = maps.Clone(n.Resources)
	out.Bureaucracy = maps.Clone(n.Bureaucracy)
	out.Relations = maps.Clone(n.Relations)
	out.Modifiers = maps.Clone(n.Modifiers)

	out.Territories = make(map[string]*TerritoryState, len(n.Territories))
	for name, ts := range n.Territories {
		out.Territories[name] = ts.Clone()
	}
	out.Military = make(map[string]*Force, len(n.Military))
	for name, f := range n.Military {
		out.Military[name] = f.Clone()
	}
	return &out
}

// Clone returns a deep copy of the territory state.
func (ts *TerritoryState) Clone() *TerritoryState {
	out := &TerritoryState{
		Buildings: make(map[string][]BuildingInstance, len(ts.Buildings)),
		Nodes:     maps.Clone(ts.Nodes),
	}
	for name, list := range ts.Buildings {
		out.Buildings[name] = slices.Clone(list)
	}
	if ts.Population != nil {
		out.Population = make(Population, len(ts.Population))
		for i, c := range ts.Population {
			cc := *c
			cc.Identifiers = maps.Clone(c.Identifiers)
			out.Population[i] = &cc
		}
	}
	return out
}

// Clone returns a deep copy of the force.
func (f *Force) Clone() *Force {
	out := *f
	out.Path = slices.Clone(f.Path)
	if f.Opponent != nil {
		opp := *f.Opponent
		out.Opponent = &opp
	}
	out.Units = make(map[string]*Unit, len(f.Units))
	for name, u := range f.Units {
		uu := *u
		out.Units[name] = &uu
	}
	return &out
}
