package game

import (
	"errors"
	"log/slog"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// blueprint looks up a building blueprint, classifying a miss as input.
func blueprint(rules *gamerule.Gamerule, name string) (*gamerule.BuildingBlueprint, error) {
	bp, err := rules.Building(name)
	if errors.Is(err, gamerule.ErrBlueprintNotFound) {
		return nil, inputf(ErrUnknownBuilding, "%q", name)
	}
	return bp, err
}

// CanBuyBuilding checks whether the nation can add a building to a territory.
func (n *Nation) CanBuyBuilding(rules *gamerule.Gamerule, territory, building string) error {
	bp, err := blueprint(rules, building)
	if err != nil {
		return err
	}
	ts, err := n.territory(territory)
	if err != nil {
		return err
	}

	if limit := bp.MaxPerTerritory(); ts.Count(building) >= limit {
		return inputf(ErrTerritoryMaximum, "%q allows %d %s", territory, limit, building)
	}
	if node, ok := ts.nodesFree(bp.Nodes); !ok {
		u := ts.Nodes[node]
		return inputf(ErrInsufficientNodes, "%s needs %d %s node(s), %d of %d free",
			building, bp.Nodes[node], node, u.Capacity-u.Used, u.Capacity)
	}
	for _, p := range bp.Prerequisites {
		if !n.hasPrerequisite(p, ts) {
			where := "in " + territory
			if p.Scope == gamerule.ScopeNation {
				where = "in " + n.Name
			}
			if p.Active {
				return inputf(ErrPrerequisite, "%s requires an active %s %s", building, p.Building, where)
			}
			return inputf(ErrPrerequisite, "%s requires %s %s", building, p.Building, where)
		}
	}
	if res, need, have, missing := n.Resources.Missing(bp.Costs); missing {
		return inputf(ErrInsufficientResources, "need %g %s, have %g", need, res, have)
	}
	return n.Bureaucracy.Check(bp.Bureaucracy)
}

func (n *Nation) hasPrerequisite(p gamerule.Prerequisite, local *TerritoryState) bool {
	if p.Scope == gamerule.ScopeTerritory {
		return local.Has(p.Building, p.Active)
	}
	for _, ts := range n.Territories {
		if ts.Has(p.Building, p.Active) {
			return true
		}
	}
	return false
}

// BuyBuilding pays for a building and starts construction. Buildings with no
// construction time are active immediately.
func (n *Nation) BuyBuilding(rules *gamerule.Gamerule, now Date, territory, building string) error {
	if err := n.CanBuyBuilding(rules, territory, building); err != nil {
		return err
	}
	bp, _ := rules.Building(building)
	ts := n.Territories[territory]

	n.Resources.Sub(bp.Costs)
	ts.useNodes(bp.Nodes, 1)

	if bp.ConstructionTime == 0 {
		ts.Buildings[building] = append(ts.Buildings[building], BuildingInstance{Status: Active()})
		n.applyBuildingEffects(territory, bp, false)
		return nil
	}

	n.Bureaucracy.Take(bp.Bureaucracy)
	ts.Buildings[building] = append(ts.Buildings[building], BuildingInstance{
		Status: Constructing(now.AddMonths(bp.ConstructionTime)),
	})
	return nil
}

// instance returns a pointer to a specific building instance.
func (n *Nation) instance(territory, building string, index int) (*TerritoryState, *BuildingInstance, error) {
	ts, err := n.territory(territory)
	if err != nil {
		return nil, nil, err
	}
	list := ts.Buildings[building]
	if index < 0 || index >= len(list) {
		return nil, nil, inputf(ErrUnknownBuilding, "%s #%d in %q", building, index, territory)
	}
	return ts, &list[index], nil
}

// DestroyBuilding removes a building instance, undoing its effects and
// freeing its nodes. Construction in progress releases its bureaucratic load.
func (n *Nation) DestroyBuilding(rules *gamerule.Gamerule, territory, building string, index int) error {
	bp, err := blueprint(rules, building)
	if err != nil {
		return err
	}
	ts, inst, err := n.instance(territory, building, index)
	if err != nil {
		return err
	}

	switch {
	case inst.Status.IsActive():
		n.applyBuildingEffects(territory, bp, true)
	case inst.Status.IsConstructing():
		n.Bureaucracy.Release(bp.Bureaucracy)
	}
	ts.useNodes(bp.Nodes, -1)

	list := ts.Buildings[building]
	ts.Buildings[building] = append(list[:index:index], list[index+1:]...)
	if len(ts.Buildings[building]) == 0 {
		delete(ts.Buildings, building)
	}
	return nil
}

// SetBuildingActive toggles a finished building between Active and Inactive.
func (n *Nation) SetBuildingActive(rules *gamerule.Gamerule, territory, building string, index int, active bool) error {
	bp, err := blueprint(rules, building)
	if err != nil {
		return err
	}
	_, inst, err := n.instance(territory, building, index)
	if err != nil {
		return err
	}
	if inst.Status.IsConstructing() {
		return inputf(ErrInvalidStatus, "%s in %q is still %s", building, territory, inst.Status)
	}
	if inst.Status.IsActive() == active {
		return nonFatalf("%s in %q is already %s", building, territory, inst.Status)
	}

	if active {
		inst.Status = Active()
	} else {
		inst.Status = Inactive()
	}
	n.applyBuildingEffects(territory, bp, !active)
	return nil
}

// advanceBuildings completes construction due by now, refunding the
// bureaucratic load and applying the new building's effects.
func (n *Nation) advanceBuildings(rules *gamerule.Gamerule, now Date) ([]string, error) {
	var completed []string
	for _, territory := range sortedKeys(n.Territories) {
		ts := n.Territories[territory]
		for _, building := range sortedKeys(ts.Buildings) {
			list := ts.Buildings[building]
			for i := range list {
				if !list[i].Status.Done(now) {
					continue
				}
				bp, err := rules.Building(building)
				if err != nil {
					return nil, logicf(ErrCorruptState, "%s in %q: %v", building, territory, err)
				}
				list[i].Status = Active()
				n.Bureaucracy.Release(bp.Bureaucracy)
				n.applyBuildingEffects(territory, bp, false)
				completed = append(completed, building+" in "+territory)
				slog.Debug("building completed", "nation", n.Name, "territory", territory, "building", building)
			}
		}
	}
	return completed, nil
}

// NetIncome returns one month of a building's resource delta. Mined amounts
// are capped by what is left in the territory pool, and the pool is drawn
// down so later buildings cannot mine the same resources.
func NetIncome(bp *gamerule.BuildingBlueprint, left Resources) Resources {
	delta := make(Resources)
	for k, v := range bp.Maintenance {
		delta[k] -= v
	}
	for _, k := range sortedKeys(bp.Mined) {
		take := min(bp.Mined[k], left[k])
		if take < 0 {
			take = 0
		}
		left[k] -= take
		delta[k] += take
	}
	for k, v := range bp.Produced {
		delta[k] += v
	}
	return delta
}

// buildingIncome sums one month of income from every active building.
func (n *Nation) buildingIncome(rules *gamerule.Gamerule, w *world.World) (Resources, error) {
	total := make(Resources)
	for _, territory := range sortedKeys(n.Territories) {
		t, err := w.Territory(territory)
		if err != nil {
			return nil, logicf(ErrCorruptState, "owned territory: %v", err)
		}
		left := Resources(t.Resources).Clone()
		for _, building := range n.Territories[territory].ActiveBuildings() {
			bp, err := rules.Building(building)
			if err != nil {
				return nil, logicf(ErrCorruptState, "%s in %q: %v", building, territory, err)
			}
			total.Add(NetIncome(bp, left))
		}
	}
	return total, nil
}

// applyBuildingEffects applies (or with reverse, removes) both scopes of a
// building's effects.
func (n *Nation) applyBuildingEffects(territory string, bp *gamerule.BuildingBlueprint, reverse bool) {
	if bp.Effects == nil {
		return
	}
	n.applyNationEffects(bp, reverse)
	if te := bp.Effects.Territory; te != nil {
		if ts, ok := n.Territories[territory]; ok {
			for _, c := range ts.Population {
				c.ApplyModifiers(te.Population, reverse)
			}
		}
	}
}

// applyNationEffects changes bureaucracy capacity and national modifiers and
// adjusts every cohort the nation owns.
func (n *Nation) applyNationEffects(bp *gamerule.BuildingBlueprint, reverse bool) {
	if bp.Effects == nil || bp.Effects.Nation == nil {
		return
	}
	ne := bp.Effects.Nation
	sign := 1.0
	if reverse {
		sign = -1
	}

	n.Bureaucracy.Extend(ne.Bureaucracy.Scaled(sign))
	for k, v := range ne.Modifiers {
		n.Modifiers[k] = roundRate(n.Modifiers[k] + sign*v)
		if n.Modifiers[k] == 0 {
			delete(n.Modifiers, k)
		}
	}
	for _, ts := range n.Territories {
		for _, c := range ts.Population {
			c.ApplyModifiers(ne.Population, reverse)
		}
	}
}

// nationPopulationModifiers collects the nation-scope population modifiers of
// every active building, skipping one territory if named.
func (n *Nation) nationPopulationModifiers(rules *gamerule.Gamerule, skip string) ([]gamerule.PopulationModifier, error) {
	var mods []gamerule.PopulationModifier
	for _, territory := range sortedKeys(n.Territories) {
		if territory == skip {
			continue
		}
		for _, building := range n.Territories[territory].ActiveBuildings() {
			bp, err := rules.Building(building)
			if err != nil {
				return nil, logicf(ErrCorruptState, "%s in %q: %v", building, territory, err)
			}
			if bp.Effects != nil && bp.Effects.Nation != nil {
				mods = append(mods, bp.Effects.Nation.Population...)
			}
		}
	}
	return mods, nil
}

// deriveModifiers applies every active modifier that reaches a new cohort.
func (n *Nation) deriveModifiers(rules *gamerule.Gamerule, territory string, c *Cohort) error {
	mods, err := n.nationPopulationModifiers(rules, "")
	if err != nil {
		return err
	}
	c.ApplyModifiers(mods, false)

	ts := n.Territories[territory]
	for _, building := range ts.ActiveBuildings() {
		bp, err := rules.Building(building)
		if err != nil {
			return logicf(ErrCorruptState, "%s in %q: %v", building, territory, err)
		}
		if bp.Effects != nil && bp.Effects.Territory != nil {
			c.ApplyModifiers(bp.Effects.Territory.Population, false)
		}
	}
	return nil
}
