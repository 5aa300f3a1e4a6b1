package game

import (
	"context"
	"log/slog"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// Session binds a savegame to its ruleset and world. It has no locking; the
// caller serializes access per game.
type Session struct {
	Rules   *gamerule.Gamerule
	World   *world.World
	Save    *Savegame
	Workers int
}

// NewSession checks that the savegame refers to the given ruleset and world.
func NewSession(rules *gamerule.Gamerule, w *world.World, save *Savegame, workers int) (*Session, error) {
	if rules == nil || w == nil || save == nil {
		return nil, logicf(ErrCorruptState, "session needs a ruleset, world and savegame")
	}
	if save.Ruleset != rules.Name {
		return nil, logicf(ErrCorruptState, "game %q uses ruleset %q, got %q", save.Name, save.Ruleset, rules.Name)
	}
	if save.World != w.Name {
		return nil, logicf(ErrCorruptState, "game %q uses world %q, got %q", save.Name, save.World, w.Name)
	}
	return &Session{Rules: rules, World: w, Save: save, Workers: workers}, nil
}

func (s *Session) nation(name string) (*Nation, error) {
	return s.Save.Nation(name)
}

// AdvanceTurn advances the game by months.
func (s *Session) AdvanceTurn(ctx context.Context, months int) (*TurnReport, error) {
	return s.Save.AdvanceTurn(ctx, s.Rules, s.World, months, s.Workers)
}

// AddNation creates a nation.
func (s *Session) AddNation(name, role, color string) error {
	_, err := s.Save.AddNation(s.Rules, name, role, color)
	if err == nil {
		slog.Debug("nation added", "game", s.Save.ID, "nation", name)
	}
	return err
}

// TransferTerritory gives a territory to a nation.
func (s *Session) TransferTerritory(territory, target string) error {
	return s.Save.TransferTerritory(s.Rules, s.World, territory, target)
}

// AddPopulation adds people to a cohort of an owned territory.
func (s *Session) AddPopulation(nation, territory, occupation string, identifiers map[string]string, size int) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.AddPopulation(s.Rules, territory, occupation, identifiers, size)
}

// RemovePopulation removes unmobilized people from a nation's cohort.
func (s *Session) RemovePopulation(nation, territory, occupation string, identifiers map[string]string, size int) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.RemovePopulation(territory, occupation, identifiers, size)
}

// AddResources credits resources to a nation.
func (s *Session) AddResources(nation string, amounts map[string]float64) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(amounts) {
		if !s.Rules.HasResource(name) {
			return inputf(ErrInvalidArgument, "unknown resource %q", name)
		}
	}
	n.Resources.Add(amounts)
	return nil
}

// CanBuyBuilding validates a building purchase without committing it.
func (s *Session) CanBuyBuilding(nation, territory, building string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.CanBuyBuilding(s.Rules, territory, building)
}

// BuyBuilding starts construction of a building.
func (s *Session) BuyBuilding(nation, territory, building string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.BuyBuilding(s.Rules, s.Save.Date, territory, building)
}

// DestroyBuilding removes one building instance.
func (s *Session) DestroyBuilding(nation, territory, building string, index int) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.DestroyBuilding(s.Rules, territory, building, index)
}

// SetBuildingActive toggles one building instance.
func (s *Session) SetBuildingActive(nation, territory, building string, index int, active bool) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.SetBuildingActive(s.Rules, territory, building, index, active)
}

// RecruitUnit raises a unit.
func (s *Session) RecruitUnit(nation, territory, unitType string, size int, force, unit string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.RecruitUnit(s.Rules, s.Save.Date, territory, unitType, size, force, unit)
}

// CombineUnits merges two units of one force.
func (s *Session) CombineUnits(nation, force, a, b string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.CombineUnits(force, a, b)
}

// SplitUnit carves new units out of one.
func (s *Session) SplitUnit(nation, force, unit string, parts map[string]int) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.SplitUnit(force, unit, parts)
}

// CombineForces merges source into target.
func (s *Session) CombineForces(nation, target, source string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.CombineForces(target, source)
}

// SplitForce moves units into a new force and returns its name.
func (s *Session) SplitForce(nation, force string, units []string) (string, error) {
	n, err := s.nation(nation)
	if err != nil {
		return "", err
	}
	return n.SplitForce(force, units)
}

// DisbandUnit dissolves one unit.
func (s *Session) DisbandUnit(nation, force, unit string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.DisbandUnit(s.Rules, force, unit)
}

// DisbandForce dissolves a whole force.
func (s *Session) DisbandForce(nation, force string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.DisbandForce(s.Rules, force)
}

// SetForceActive toggles a force between Active and Inactive.
func (s *Session) SetForceActive(nation, force string, active bool) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.SetForceActive(force, active)
}

// MoveForce orders a force to march.
func (s *Session) MoveForce(nation, force, target string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.MoveForce(s.World, force, target)
}

// StopForce halts a marching force.
func (s *Session) StopForce(nation, force string) error {
	n, err := s.nation(nation)
	if err != nil {
		return err
	}
	return n.StopForce(force)
}

// SetRelation records a's stance toward b.
func (s *Session) SetRelation(a, b string, r Relation) error {
	return s.Save.SetRelation(a, b, r)
}

// StartBattle engages two forces.
func (s *Session) StartBattle(a, b ForceRef) error {
	if err := s.Save.StartBattle(a, b); err != nil {
		return err
	}
	slog.Debug("battle started", "game", s.Save.ID, "a", a.String(), "b", b.String())
	return nil
}

// EndBattle releases a battling force.
func (s *Session) EndBattle(ref ForceRef) error {
	return s.Save.EndBattle(ref)
}

// RefreshMap redraws the ownership map if it is stale.
func (s *Session) RefreshMap(ctx context.Context, r Renderer) (bool, error) {
	return s.Save.RefreshMap(ctx, s.World, r)
}
