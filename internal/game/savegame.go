package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// MapState tracks whether the rendered map is stale.
type MapState struct {
	Changed    bool   `json:"changed"`
	Generation int    `json:"generation"`
	Image      string `json:"image,omitempty"`
}

// Savegame is the mutable root state of one running game.
type Savegame struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Server  string             `json:"server"`
	Ruleset string             `json:"ruleset"`
	World   string             `json:"world"`
	Date    Date               `json:"date"`
	Turn    int                `json:"turn"`
	Map     MapState           `json:"map"`
	Nations map[string]*Nation `json:"nations"`
}

// Renderer draws the world with territories colored by owner and returns a
// handle to the image.
type Renderer interface {
	Render(ctx context.Context, w *world.World, colors map[string]string) (string, error)
}

// NewSavegame creates an empty game starting on the given date.
func NewSavegame(name, server, ruleset, worldName string, start Date) (*Savegame, error) {
	if name == "" {
		return nil, inputf(ErrInvalidArgument, "game name is empty")
	}
	if !start.Valid() {
		return nil, inputf(ErrInvalidDate, "%s", start)
	}
	return &Savegame{
		ID:      uuid.New().String(),
		Name:    name,
		Server:  server,
		Ruleset: ruleset,
		World:   worldName,
		Date:    start,
		Map:     MapState{Changed: true},
		Nations: make(map[string]*Nation),
	}, nil
}

// Nation returns a nation by name.
func (s *Savegame) Nation(name string) (*Nation, error) {
	n, ok := s.Nations[name]
	if !ok {
		return nil, inputf(ErrUnknownNation, "%q", name)
	}
	return n, nil
}

// NationNames returns nation names in sorted order.
func (s *Savegame) NationNames() []string {
	return sortedKeys(s.Nations)
}

// NationForRole resolves a player role to the nation bound to it.
func (s *Savegame) NationForRole(role string) (*Nation, error) {
	if role == "" {
		return nil, inputf(ErrUnknownNation, "empty role")
	}
	for _, name := range s.NationNames() {
		if s.Nations[name].Role == role {
			return s.Nations[name], nil
		}
	}
	return nil, inputf(ErrUnknownNation, "no nation bound to role %q", role)
}

// AddNation creates a nation with the ruleset defaults.
func (s *Savegame) AddNation(rules *gamerule.Gamerule, name, role, color string) (*Nation, error) {
	if name == "" {
		return nil, inputf(ErrInvalidArgument, "nation name is empty")
	}
	if _, taken := s.Nations[name]; taken {
		return nil, inputf(ErrNameTaken, "nation %q", name)
	}
	if role != "" {
		if other, err := s.NationForRole(role); err == nil {
			return nil, inputf(ErrNameTaken, "role %q is bound to %q", role, other.Name)
		}
	}
	n := NewNation(rules, name, role, color)
	s.Nations[name] = n
	return n, nil
}

// BindRole attaches a player role to a nation.
func (s *Savegame) BindRole(nation, role string) error {
	n, err := s.Nation(nation)
	if err != nil {
		return err
	}
	if role == "" {
		return inputf(ErrInvalidArgument, "role is empty")
	}
	if other, err := s.NationForRole(role); err == nil {
		if other == n {
			return nonFatalf("role %q is already bound to %q", role, nation)
		}
		return inputf(ErrNameTaken, "role %q is bound to %q", role, other.Name)
	}
	n.Role = role
	return nil
}

// UnbindRole detaches the player from a nation. The nation itself stays.
func (s *Savegame) UnbindRole(nation string) error {
	n, err := s.Nation(nation)
	if err != nil {
		return err
	}
	if n.Role == "" {
		return nonFatalf("%q has no role", nation)
	}
	n.Role = ""
	return nil
}

// SetRelation records a's stance toward b.
func (s *Savegame) SetRelation(a, b string, r Relation) error {
	na, err := s.Nation(a)
	if err != nil {
		return err
	}
	if _, err := s.Nation(b); err != nil {
		return err
	}
	if a == b {
		return inputf(ErrInvalidArgument, "%q cannot have a relation with itself", a)
	}
	switch r {
	case "", RelationEnemy, RelationAlly:
	default:
		return inputf(ErrInvalidArgument, "unknown relation %q", r)
	}
	na.SetRelation(b, r)
	return nil
}

// hostile reports whether either nation considers the other an enemy.
func (s *Savegame) hostile(a, b string) bool {
	if a == b {
		return false
	}
	na, nb := s.Nations[a], s.Nations[b]
	return na.RelationWith(b) == RelationEnemy || nb.RelationWith(a) == RelationEnemy
}

// Owner returns the nation owning a territory, or "" if unowned. More than one
// owner means the state is corrupt.
func (s *Savegame) Owner(territory string) (string, error) {
	var owners []string
	for _, name := range s.NationNames() {
		if s.Nations[name].Owns(territory) {
			owners = append(owners, name)
		}
	}
	switch len(owners) {
	case 0:
		return "", nil
	case 1:
		return owners[0], nil
	default:
		return "", logicf(ErrDoubleClaim, "%q is owned by %v", territory, owners)
	}
}

// TransferTerritory moves a territory to the target nation, taking it from
// its current owner if it has one. Nation-scope building effects follow the
// territory.
func (s *Savegame) TransferTerritory(rules *gamerule.Gamerule, w *world.World, territory, target string) error {
	t, err := w.Territory(territory)
	if err != nil {
		return asInput(err)
	}
	to, err := s.Nation(target)
	if err != nil {
		return err
	}
	owner, err := s.Owner(territory)
	if err != nil {
		return err
	}
	if owner == target {
		return nonFatalf("%q already owns %q", target, territory)
	}

	if err := to.checkBlueprints(rules); err != nil {
		return err
	}
	ts := NewTerritoryState(t)
	if owner != "" {
		from := s.Nations[owner]
		if err := from.checkBlueprints(rules); err != nil {
			return err
		}
		ts = from.cede(rules, territory)
	}
	to.annex(rules, territory, ts)

	slog.Debug("territory transferred", "territory", territory, "from", owner, "to", target)
	s.markChanged()
	return nil
}

// checkBlueprints ensures every building the nation owns resolves against the
// ruleset.
func (n *Nation) checkBlueprints(rules *gamerule.Gamerule) error {
	for name, ts := range n.Territories {
		for building := range ts.Buildings {
			if _, err := rules.Building(building); err != nil {
				return logicf(ErrCorruptState, "%s in %q: %v", building, name, err)
			}
		}
	}
	return nil
}

// cede removes a territory from the nation. Its buildings' nation effects are
// withdrawn, the load of construction in progress is released and the
// nation's remaining effects are stripped from its cohorts. Blueprints must
// already be checked.
func (n *Nation) cede(rules *gamerule.Gamerule, territory string) *TerritoryState {
	ts := n.Territories[territory]
	for _, building := range ts.ActiveBuildings() {
		bp, _ := rules.Building(building)
		n.applyNationEffects(bp, true)
	}
	for _, building := range ts.ConstructingBuildings() {
		bp, _ := rules.Building(building)
		n.Bureaucracy.Release(bp.Bureaucracy)
	}
	delete(n.Territories, territory)

	others, _ := n.nationPopulationModifiers(rules, "")
	for _, c := range ts.Population {
		c.ApplyModifiers(others, true)
	}
	return ts
}

// annex is the inverse of cede. Construction in progress loads the new
// owner's bureaucracy even past its capacity.
func (n *Nation) annex(rules *gamerule.Gamerule, territory string, ts *TerritoryState) {
	others, _ := n.nationPopulationModifiers(rules, "")
	for _, c := range ts.Population {
		c.ApplyModifiers(others, false)
	}
	n.Territories[territory] = ts
	for _, building := range ts.ConstructingBuildings() {
		bp, _ := rules.Building(building)
		n.Bureaucracy.Take(bp.Bureaucracy)
	}
	for _, building := range ts.ActiveBuildings() {
		bp, _ := rules.Building(building)
		n.applyNationEffects(bp, false)
	}
}

// StartBattle engages two forces of hostile nations sharing a location.
func (s *Savegame) StartBattle(a, b ForceRef) error {
	fa, err := s.force(a)
	if err != nil {
		return err
	}
	fb, err := s.force(b)
	if err != nil {
		return err
	}
	switch {
	case a.Nation == b.Nation:
		return inputf(ErrInvalidArgument, "%s and %s belong to the same nation", a, b)
	case fa.Location != fb.Location:
		return inputf(ErrIncompatible, "%s is in %q, %s is in %q", a, fa.Location, b, fb.Location)
	case fa.Status.Kind == StatusBattling || fb.Status.Kind == StatusBattling:
		return inputf(ErrEngaged, "%s is %s, %s is %s", a, fa.Status, b, fb.Status)
	case fa.Status.IsConstructing() || fb.Status.IsConstructing():
		return inputf(ErrInvalidStatus, "%s is %s, %s is %s", a, fa.Status, b, fb.Status)
	}
	engage(fa, a, fb, b)
	return nil
}

func engage(fa *Force, a ForceRef, fb *Force, b ForceRef) {
	fa.Path, fb.Path = nil, nil
	fa.Status = Status{Kind: StatusBattling}
	fb.Status = Status{Kind: StatusBattling}
	fa.Opponent = &ForceRef{Nation: b.Nation, Force: b.Force}
	fb.Opponent = &ForceRef{Nation: a.Nation, Force: a.Force}
}

// EndBattle returns a battling force to Active. Its opponent is released too
// if it is still battling this force.
func (s *Savegame) EndBattle(ref ForceRef) error {
	f, err := s.force(ref)
	if err != nil {
		return err
	}
	if f.Status.Kind != StatusBattling {
		return nonFatalf("%s is not battling", ref)
	}
	opp := f.Opponent
	f.Status = Active()
	f.Opponent = nil

	if opp == nil {
		return nil
	}
	if o, err := s.force(*opp); err == nil && o.Status.Kind == StatusBattling &&
		o.Opponent != nil && *o.Opponent == ref {
		o.Status = Active()
		o.Opponent = nil
	}
	return nil
}

func (s *Savegame) force(ref ForceRef) (*Force, error) {
	n, err := s.Nation(ref.Nation)
	if err != nil {
		return nil, err
	}
	return n.Force(ref.Force)
}

// ColorAssignment maps every owned territory to its owner's color.
func (s *Savegame) ColorAssignment() map[string]string {
	colors := make(map[string]string)
	for _, n := range s.Nations {
		for territory := range n.Territories {
			colors[territory] = n.Color
		}
	}
	return colors
}

func (s *Savegame) markChanged() {
	s.Map.Changed = true
	s.Map.Generation++
}

// RefreshMap renders the map if it is stale and stores the image handle.
func (s *Savegame) RefreshMap(ctx context.Context, w *world.World, r Renderer) (bool, error) {
	if !s.Map.Changed {
		return false, nil
	}
	image, err := r.Render(ctx, w, s.ColorAssignment())
	if err != nil {
		return false, fmt.Errorf("failed to render map: %w", err)
	}
	s.Map.Image = image
	s.Map.Changed = false
	return true, nil
}

// Summary is a short overview of one nation.
type Summary struct {
	Nation      string  `json:"nation"`
	Territories int     `json:"territories"`
	Population  int     `json:"population"`
	Manpower    int     `json:"manpower"`
	Forces      int     `json:"forces"`
	Money       float64 `json:"money"`
}

// Summaries returns one summary per nation in name order.
func (s *Savegame) Summaries() []Summary {
	out := make([]Summary, 0, len(s.Nations))
	for _, name := range s.NationNames() {
		n := s.Nations[name]
		sum := Summary{
			Nation:      name,
			Territories: len(n.Territories),
			Forces:      len(n.Military),
			Money:       n.Resources[gamerule.Money],
		}
		for _, ts := range n.Territories {
			sum.Population += ts.Population.Total()
			sum.Manpower += ts.Manpower()
		}
		out = append(out, sum)
	}
	return out
}
