// Package gamerule defines the static ruleset a game is played under:
// resources, building and unit blueprints, occupations, population
// identifiers and the base constants nations start from.
// A Gamerule is read-only once a game has started.
package gamerule

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Money is the resource every ruleset must define; tax income accrues to it.
const Money = "Money"

// Well-known national modifier keys.
const (
	ModifierTaxRate      = "TaxRate"
	ModifierManpowerCost = "ManpowerCost"
)

// Scope says where an effect or prerequisite applies.
type Scope string

const (
	ScopeNation    Scope = "Nation"
	ScopeTerritory Scope = "Territory"
)

var (
	ErrBlueprintNotFound = errors.New("blueprint not found")
	ErrInvalidRuleset    = errors.New("invalid ruleset")
)

// Amounts maps a resource (or bureaucracy category, or modifier) to a quantity.
type Amounts map[string]float64

// Clone returns an independent copy.
func (a Amounts) Clone() Amounts {
	if a == nil {
		return nil
	}
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Scaled returns a copy with every value multiplied by f.
func (a Amounts) Scaled(f float64) Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v * f
	}
	return out
}

// Gamerule is the ruleset configuration for a game instance.
type Gamerule struct {
	Name        string                        `yaml:"name"`
	Resources   []string                      `yaml:"resources"`
	Buildings   map[string]*BuildingBlueprint `yaml:"buildings"`
	Units       map[string]*UnitBlueprint     `yaml:"units"`
	Occupations []string                      `yaml:"occupations"`
	// Identifiers maps a population identifier category (e.g. "Culture")
	// to its valid values.
	Identifiers map[string][]string `yaml:"identifiers"`
	Bureaucracy Amounts             `yaml:"bureaucracy"`
	Modifiers   Amounts             `yaml:"modifiers"`
	GrowthRate  float64             `yaml:"growth_rate"`
}

// PopulationModifier adjusts the growth rate of matching cohorts.
// Empty filters match every cohort.
type PopulationModifier struct {
	Occupation  string   `yaml:"occupation,omitempty"`
	Identifiers []string `yaml:"identifiers,omitempty"`
	GrowthRate  float64  `yaml:"growth_rate"`
}

// NationEffects apply to the owning nation as a whole.
type NationEffects struct {
	Bureaucracy Amounts              `yaml:"bureaucracy,omitempty"`
	Modifiers   Amounts              `yaml:"modifiers,omitempty"`
	Population  []PopulationModifier `yaml:"population,omitempty"`
}

// TerritoryEffects apply only to the territory the building stands in.
type TerritoryEffects struct {
	Population []PopulationModifier `yaml:"population,omitempty"`
}

// Effects is the modifier set an active building contributes.
type Effects struct {
	Nation    *NationEffects    `yaml:"nation,omitempty"`
	Territory *TerritoryEffects `yaml:"territory,omitempty"`
}

// Prerequisite names a building that must exist before another can be bought.
type Prerequisite struct {
	Building string `yaml:"building"`
	Scope    Scope  `yaml:"scope"`
	Active   bool   `yaml:"active,omitempty"`
}

// BuildingBlueprint is the static definition of a building type.
type BuildingBlueprint struct {
	Costs            Amounts        `yaml:"costs,omitempty"`
	Maintenance      Amounts        `yaml:"maintenance,omitempty"`
	Mined            Amounts        `yaml:"mined,omitempty"`
	Produced         Amounts        `yaml:"produced,omitempty"`
	Bureaucracy      Amounts        `yaml:"bureaucracy,omitempty"`
	ConstructionTime int            `yaml:"construction_time"`
	TerritoryMaximum int            `yaml:"territory_maximum,omitempty"`
	Nodes            map[string]int `yaml:"nodes,omitempty"`
	Prerequisites    []Prerequisite `yaml:"prerequisites,omitempty"`
	Effects          *Effects       `yaml:"effects,omitempty"`
}

// MaxPerTerritory returns the territory maximum, defaulting to 1.
func (b *BuildingBlueprint) MaxPerTerritory() int {
	if b.TerritoryMaximum <= 0 {
		return 1
	}
	return b.TerritoryMaximum
}

// UnitBlueprint is the static definition of a unit type. Costs, maintenance
// and bureaucratic cost are per CrewSize soldiers.
type UnitBlueprint struct {
	Costs            Amounts `yaml:"costs,omitempty"`
	Maintenance      Amounts `yaml:"maintenance,omitempty"`
	Bureaucracy      Amounts `yaml:"bureaucracy,omitempty"`
	ConstructionTime int     `yaml:"construction_time"`
	Speed            float64 `yaml:"speed"`
	CrewSize         int     `yaml:"crew_size,omitempty"`
}

// Multiplier returns how many crews a unit of the given size represents.
func (u *UnitBlueprint) Multiplier(size int) float64 {
	crew := u.CrewSize
	if crew <= 0 {
		crew = 1
	}
	return float64(size) / float64(crew)
}

// Parse decodes and validates a YAML ruleset.
func Parse(data []byte) (*Gamerule, error) {
	var g Gamerule
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset YAML: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Load reads a ruleset file from disk.
func Load(path string) (*Gamerule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the ruleset back to YAML.
func (g *Gamerule) Marshal() ([]byte, error) {
	return yaml.Marshal(g)
}

// Building looks up a building blueprint.
func (g *Gamerule) Building(name string) (*BuildingBlueprint, error) {
	if bp, ok := g.Buildings[name]; ok {
		return bp, nil
	}
	return nil, fmt.Errorf("%w: building %q", ErrBlueprintNotFound, name)
}

// Unit looks up a unit blueprint.
func (g *Gamerule) Unit(name string) (*UnitBlueprint, error) {
	if bp, ok := g.Units[name]; ok {
		return bp, nil
	}
	return nil, fmt.Errorf("%w: unit %q", ErrBlueprintNotFound, name)
}

// HasResource reports whether name is a declared resource.
func (g *Gamerule) HasResource(name string) bool {
	return slices.Contains(g.Resources, name)
}

// HasOccupation reports whether name is a declared occupation.
func (g *Gamerule) HasOccupation(name string) bool {
	return slices.Contains(g.Occupations, name)
}

// ValidIdentifier reports whether value belongs to the identifier category.
func (g *Gamerule) ValidIdentifier(category, value string) bool {
	return slices.Contains(g.Identifiers[category], value)
}

// BuildingNames returns blueprint names in sorted order.
func (g *Gamerule) BuildingNames() []string {
	names := make([]string, 0, len(g.Buildings))
	for name := range g.Buildings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks internal consistency of the ruleset.
func (g *Gamerule) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRuleset)
	}
	if !g.HasResource(Money) {
		return fmt.Errorf("%w: resource %q is required", ErrInvalidRuleset, Money)
	}
	if len(g.Occupations) == 0 {
		return fmt.Errorf("%w: at least one occupation is required", ErrInvalidRuleset)
	}
	if g.GrowthRate <= -1 {
		return fmt.Errorf("%w: growth rate %v must be greater than -1", ErrInvalidRuleset, g.GrowthRate)
	}

	for _, name := range g.BuildingNames() {
		bp := g.Buildings[name]
		if bp == nil {
			return fmt.Errorf("%w: building %q has no definition", ErrInvalidRuleset, name)
		}
		if bp.ConstructionTime < 0 {
			return fmt.Errorf("%w: building %q has negative construction time", ErrInvalidRuleset, name)
		}
		for _, set := range []Amounts{bp.Costs, bp.Maintenance, bp.Mined, bp.Produced} {
			if err := g.checkResources(name, set); err != nil {
				return err
			}
		}
		for _, p := range bp.Prerequisites {
			if _, ok := g.Buildings[p.Building]; !ok {
				return fmt.Errorf("%w: building %q requires unknown building %q", ErrInvalidRuleset, name, p.Building)
			}
			if p.Scope != ScopeNation && p.Scope != ScopeTerritory {
				return fmt.Errorf("%w: building %q prerequisite has invalid scope %q", ErrInvalidRuleset, name, p.Scope)
			}
		}
		if bp.Effects != nil {
			if err := g.checkEffects(name, bp.Effects); err != nil {
				return err
			}
		}
	}

	for name, bp := range g.Units {
		if bp == nil {
			return fmt.Errorf("%w: unit %q has no definition", ErrInvalidRuleset, name)
		}
		if bp.Speed <= 0 {
			return fmt.Errorf("%w: unit %q must have a positive speed", ErrInvalidRuleset, name)
		}
		if bp.ConstructionTime < 0 {
			return fmt.Errorf("%w: unit %q has negative construction time", ErrInvalidRuleset, name)
		}
		for _, set := range []Amounts{bp.Costs, bp.Maintenance} {
			if err := g.checkResources(name, set); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Gamerule) checkResources(owner string, set Amounts) error {
	for res := range set {
		if !g.HasResource(res) {
			return fmt.Errorf("%w: %q references unknown resource %q", ErrInvalidRuleset, owner, res)
		}
	}
	return nil
}

func (g *Gamerule) checkEffects(owner string, e *Effects) error {
	var mods []PopulationModifier
	if e.Nation != nil {
		mods = append(mods, e.Nation.Population...)
	}
	if e.Territory != nil {
		mods = append(mods, e.Territory.Population...)
	}
	for _, m := range mods {
		if m.Occupation != "" && !g.HasOccupation(m.Occupation) {
			return fmt.Errorf("%w: %q effect references unknown occupation %q", ErrInvalidRuleset, owner, m.Occupation)
		}
	}
	return nil
}
