package game

import (
	"errors"
	"fmt"
	"log/slog"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// Unit is a group of soldiers of one type raised in one territory.
type Unit struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int    `json:"size"`
	Home   string `json:"home"`
	Status Status `json:"status"`
}

// ForceRef names a force of a specific nation.
type ForceRef struct {
	Nation string `json:"nation"`
	Force  string `json:"force"`
}

func (r ForceRef) String() string { return r.Nation + "/" + r.Force }

// Force is a named collection of units sharing a location and status.
type Force struct {
	Name     string           `json:"name"`
	Status   Status           `json:"status"`
	Location string           `json:"location"`
	Path     []world.Step     `json:"path,omitempty"`
	Opponent *ForceRef        `json:"opponent,omitempty"`
	Units    map[string]*Unit `json:"units"`
}

// Size returns the total headcount of the force.
func (f *Force) Size() int {
	total := 0
	for _, u := range f.Units {
		total += u.Size
	}
	return total
}

// engaged reports whether the force is in a state that blocks reorganisation.
func (f *Force) engaged() bool {
	return f.Status.Kind == StatusMoving || f.Status.Kind == StatusBattling
}

// refreshConstruction derives the force status from its units: Constructing
// until the last unit is ready, Active afterwards.
func (f *Force) refreshConstruction() {
	if f.engaged() {
		return
	}
	var until Date
	constructing := false
	for _, u := range f.Units {
		if u.Status.IsConstructing() {
			if !constructing || until.Before(u.Status.Until) {
				until = u.Status.Until
			}
			constructing = true
		}
	}
	switch {
	case constructing:
		f.Status = Constructing(until)
	case f.Status.IsConstructing():
		f.Status = Active()
	}
}

func unitBlueprint(rules *gamerule.Gamerule, name string) (*gamerule.UnitBlueprint, error) {
	bp, err := rules.Unit(name)
	if errors.Is(err, gamerule.ErrBlueprintNotFound) {
		return nil, inputf(ErrUnknownUnit, "unit type %q", name)
	}
	return bp, err
}

// Force returns a force by name.
func (n *Nation) Force(name string) (*Force, error) {
	f, ok := n.Military[name]
	if !ok {
		return nil, inputf(ErrUnknownForce, "%s has no force %q", n.Name, name)
	}
	return f, nil
}

// findUnit locates a unit anywhere in the nation's military.
func (n *Nation) findUnit(name string) (*Force, *Unit) {
	for _, f := range n.Military {
		if u, ok := f.Units[name]; ok {
			return f, u
		}
	}
	return nil, nil
}

func (n *Nation) unitInForce(force, unit string) (*Force, *Unit, error) {
	f, err := n.Force(force)
	if err != nil {
		return nil, nil, err
	}
	u, ok := f.Units[unit]
	if !ok {
		return nil, nil, inputf(ErrUnknownUnit, "force %q has no unit %q", force, unit)
	}
	return f, u, nil
}

func (n *Nation) checkUnitName(name string) error {
	if name == "" {
		return inputf(ErrInvalidArgument, "unit name is empty")
	}
	if f, _ := n.findUnit(name); f != nil {
		return inputf(ErrNameTaken, "unit %q already serves in %q", name, f.Name)
	}
	return nil
}

// RecruitCost returns the resources and bureaucratic load of raising a unit.
func (n *Nation) RecruitCost(rules *gamerule.Gamerule, bp *gamerule.UnitBlueprint, size int) (Resources, Resources) {
	mult := bp.Multiplier(size)
	cost := Resources(bp.Costs).Scaled(mult)
	cost[gamerule.Money] += float64(size) * n.ManpowerCost(rules)
	return cost, Resources(bp.Bureaucracy).Scaled(mult)
}

// RecruitUnit raises a unit from a territory's unmobilized population and
// places it in the named force, creating the force at that territory if needed.
func (n *Nation) RecruitUnit(rules *gamerule.Gamerule, now Date, territory, unitType string, size int, force, unit string) error {
	bp, err := unitBlueprint(rules, unitType)
	if err != nil {
		return err
	}
	ts, err := n.territory(territory)
	if err != nil {
		return err
	}
	if size <= 0 {
		return inputf(ErrInvalidArgument, "unit size must be positive, got %d", size)
	}
	if err := n.checkUnitName(unit); err != nil {
		return err
	}
	f, exists := n.Military[force]
	switch {
	case force == "":
		return inputf(ErrInvalidArgument, "force name is empty")
	case exists && f.Location != territory:
		return inputf(ErrIncompatible, "force %q is in %q, not %q", force, f.Location, territory)
	case exists && f.engaged():
		return inputf(ErrEngaged, "force %q is %s", force, f.Status)
	}

	cost, load := n.RecruitCost(rules, bp, size)
	if res, need, have, missing := n.Resources.Missing(cost); missing {
		return inputf(ErrInsufficientResources, "need %g %s, have %g", need, res, have)
	}
	if err := n.Bureaucracy.Check(load); err != nil {
		return err
	}
	if ts.Headroom() < size {
		return inputf(ErrInsufficientManpower, "%q has %d unmobilized, need %d", territory, ts.Headroom(), size)
	}

	if err := ts.Population.Recruit(size); err != nil {
		return err
	}
	n.Resources.Sub(cost)

	u := &Unit{Name: unit, Type: unitType, Size: size, Home: territory, Status: Active()}
	if bp.ConstructionTime > 0 {
		n.Bureaucracy.Take(load)
		u.Status = Constructing(now.AddMonths(bp.ConstructionTime))
	}
	if !exists {
		f = &Force{Name: force, Status: Active(), Location: territory, Units: make(map[string]*Unit)}
		n.Military[force] = f
	}
	f.Units[unit] = u
	f.refreshConstruction()
	return nil
}

// CombineUnits folds unit b into unit a. Both must share a force, type, home
// territory and status.
func (n *Nation) CombineUnits(force, a, b string) error {
	f, ua, err := n.unitInForce(force, a)
	if err != nil {
		return err
	}
	_, ub, err := n.unitInForce(force, b)
	if err != nil {
		return err
	}
	switch {
	case a == b:
		return inputf(ErrInvalidArgument, "cannot combine %q with itself", a)
	case ua.Type != ub.Type:
		return inputf(ErrIncompatible, "%q is %s, %q is %s", a, ua.Type, b, ub.Type)
	case ua.Home != ub.Home:
		return inputf(ErrIncompatible, "%q was raised in %q, %q in %q", a, ua.Home, b, ub.Home)
	case ua.Status != ub.Status:
		return inputf(ErrIncompatible, "%q is %s, %q is %s", a, ua.Status, b, ub.Status)
	}

	ua.Size += ub.Size
	delete(f.Units, b)
	return nil
}

// SplitUnit carves new units out of an existing one. Sizes must sum to at
// most the original; if they use it all the original is removed.
func (n *Nation) SplitUnit(force, unit string, parts map[string]int) error {
	f, u, err := n.unitInForce(force, unit)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return inputf(ErrInvalidArgument, "no parts given")
	}
	total := 0
	for _, name := range sortedKeys(parts) {
		if err := n.checkUnitName(name); err != nil {
			return err
		}
		if parts[name] <= 0 {
			return inputf(ErrInvalidArgument, "part %q has size %d", name, parts[name])
		}
		total += parts[name]
	}
	if total > u.Size {
		return inputf(ErrInvalidArgument, "parts total %d exceeds unit size %d", total, u.Size)
	}

	for _, name := range sortedKeys(parts) {
		f.Units[name] = &Unit{Name: name, Type: u.Type, Size: parts[name], Home: u.Home, Status: u.Status}
	}
	u.Size -= total
	if u.Size == 0 {
		delete(f.Units, unit)
	}
	return nil
}

// CombineForces merges source into target. Both must be stationary with the
// same status and location.
func (n *Nation) CombineForces(target, source string) error {
	t, err := n.Force(target)
	if err != nil {
		return err
	}
	s, err := n.Force(source)
	if err != nil {
		return err
	}
	switch {
	case target == source:
		return inputf(ErrInvalidArgument, "cannot combine %q with itself", target)
	case t.engaged() || s.engaged():
		return inputf(ErrEngaged, "%q is %s, %q is %s", target, t.Status, source, s.Status)
	case t.Location != s.Location:
		return inputf(ErrIncompatible, "%q is in %q, %q is in %q", target, t.Location, source, s.Location)
	case t.Status != s.Status:
		return inputf(ErrIncompatible, "%q is %s, %q is %s", target, t.Status, source, s.Status)
	}
	for name := range s.Units {
		if _, dup := t.Units[name]; dup {
			return inputf(ErrNameTaken, "unit %q exists in both forces", name)
		}
	}

	for name, u := range s.Units {
		t.Units[name] = u
	}
	delete(n.Military, source)
	return nil
}

// nextForceName returns "<base> N" for the lowest free N >= 2.
func (n *Nation) nextForceName(base string) string {
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s %d", base, i)
		if _, taken := n.Military[name]; !taken {
			return name
		}
	}
}

// SplitForce moves the named units into a new force at the same location and
// returns the new force's name.
func (n *Nation) SplitForce(force string, units []string) (string, error) {
	f, err := n.Force(force)
	if err != nil {
		return "", err
	}
	if f.engaged() {
		return "", inputf(ErrEngaged, "force %q is %s", force, f.Status)
	}
	if len(units) == 0 {
		return "", inputf(ErrInvalidArgument, "no units given")
	}
	seen := make(map[string]bool, len(units))
	for _, name := range units {
		if _, ok := f.Units[name]; !ok {
			return "", inputf(ErrUnknownUnit, "force %q has no unit %q", force, name)
		}
		if seen[name] {
			return "", inputf(ErrInvalidArgument, "unit %q listed twice", name)
		}
		seen[name] = true
	}
	if len(seen) == len(f.Units) {
		return "", inputf(ErrInvalidArgument, "force %q must keep at least one unit", force)
	}

	split := &Force{
		Name:     n.nextForceName(force),
		Status:   f.Status,
		Location: f.Location,
		Units:    make(map[string]*Unit, len(units)),
	}
	for _, name := range units {
		split.Units[name] = f.Units[name]
		delete(f.Units, name)
	}
	f.refreshConstruction()
	split.refreshConstruction()
	n.Military[split.Name] = split
	return split.Name, nil
}

// disband returns a unit's soldiers to its home territory, or loses them if
// the territory is no longer owned.
func (n *Nation) disband(rules *gamerule.Gamerule, u *Unit) error {
	bp, err := rules.Unit(u.Type)
	if err != nil {
		return logicf(ErrCorruptState, "unit %q: %v", u.Name, err)
	}
	if u.Status.IsConstructing() {
		n.Bureaucracy.Release(Resources(bp.Bureaucracy).Scaled(bp.Multiplier(u.Size)))
	}
	ts, ok := n.Territories[u.Home]
	if !ok {
		slog.Debug("unit disbanded away from home", "nation", n.Name, "unit", u.Name, "home", u.Home, "lost", u.Size)
		return nil
	}
	return ts.Population.Demobilize(min(u.Size, ts.Manpower()))
}

// DisbandUnit dissolves one unit. A force left without units is removed.
func (n *Nation) DisbandUnit(rules *gamerule.Gamerule, force, unit string) error {
	f, u, err := n.unitInForce(force, unit)
	if err != nil {
		return err
	}
	if f.Status.Kind == StatusBattling {
		return inputf(ErrEngaged, "force %q is battling", force)
	}
	if _, err := rules.Unit(u.Type); err != nil {
		return logicf(ErrCorruptState, "unit %q: %v", unit, err)
	}

	if err := n.disband(rules, u); err != nil {
		return err
	}
	delete(f.Units, unit)
	if len(f.Units) == 0 {
		delete(n.Military, force)
		return nil
	}
	f.refreshConstruction()
	return nil
}

// DisbandForce dissolves every unit in a force and removes it.
func (n *Nation) DisbandForce(rules *gamerule.Gamerule, force string) error {
	f, err := n.Force(force)
	if err != nil {
		return err
	}
	if f.Status.Kind == StatusBattling {
		return inputf(ErrEngaged, "force %q is battling", force)
	}
	for _, name := range sortedKeys(f.Units) {
		if _, err := rules.Unit(f.Units[name].Type); err != nil {
			return logicf(ErrCorruptState, "unit %q: %v", name, err)
		}
	}

	for _, name := range sortedKeys(f.Units) {
		if err := n.disband(rules, f.Units[name]); err != nil {
			return err
		}
	}
	delete(n.Military, force)
	return nil
}

// SetForceActive toggles a stationary force between Active and Inactive.
func (n *Nation) SetForceActive(force string, active bool) error {
	f, err := n.Force(force)
	if err != nil {
		return err
	}
	switch f.Status.Kind {
	case StatusActive, StatusInactive:
	default:
		return inputf(ErrInvalidStatus, "force %q is %s", force, f.Status)
	}
	if f.Status.IsActive() == active {
		return nonFatalf("force %q is already %s", force, f.Status)
	}
	if active {
		f.Status = Active()
	} else {
		f.Status = Inactive()
	}
	return nil
}

// processMilitary completes unit construction, charges maintenance and moves
// forces. It returns the resource delta and a list of arrivals.
func (n *Nation) processMilitary(rules *gamerule.Gamerule, now Date, months int) (Resources, []string, error) {
	delta := make(Resources)
	var arrived []string
	for _, name := range sortedKeys(n.Military) {
		f := n.Military[name]
		for _, un := range sortedKeys(f.Units) {
			u := f.Units[un]
			bp, err := rules.Unit(u.Type)
			if err != nil {
				return nil, nil, logicf(ErrCorruptState, "unit %q: %v", un, err)
			}
			mult := bp.Multiplier(u.Size)
			if u.Status.Done(now) {
				u.Status = Active()
				n.Bureaucracy.Release(Resources(bp.Bureaucracy).Scaled(mult))
				slog.Debug("unit ready", "nation", n.Name, "force", name, "unit", un)
			}
			if !u.Status.IsConstructing() {
				delta.Sub(Resources(bp.Maintenance).Scaled(mult * float64(months)))
			}
		}
		f.refreshConstruction()

		if f.Status.Kind != StatusMoving {
			continue
		}
		moved, err := f.advance(rules, months)
		if err != nil {
			return nil, nil, err
		}
		if moved && f.Status.IsActive() {
			arrived = append(arrived, name+" at "+f.Location)
			slog.Debug("force arrived", "nation", n.Name, "force", name, "location", f.Location)
		}
	}
	return delta, arrived, nil
}
