package game

import (
	"grand-strategy/internal/gamerule"
)

// Relation is a diplomatic stance toward another nation. Absence is neutral.
type Relation string

const (
	RelationEnemy Relation = "Enemy"
	RelationAlly  Relation = "Ally"
)

// Nation is a player-controlled state.
type Nation struct {
	Name string `json:"name"`
	// Role is the external role token bound to this nation, empty if unbound.
	Role        string                     `json:"role"`
	Color       string                     `json:"color"`
	Resources   Resources                  `json:"resources"`
	Bureaucracy Bureaucracy                `json:"bureaucracy"`
	Relations   map[string]Relation        `json:"relations"`
	Modifiers   map[string]float64         `json:"modifiers"`
	Territories map[string]*TerritoryState `json:"territories"`
	Military    map[string]*Force          `json:"military"`
}

// NewNation creates a nation with empty ledgers and the ruleset's base
// bureaucracy capacities.
func NewNation(rules *gamerule.Gamerule, name, role, color string) *Nation {
	n := &Nation{
		Name:        name,
		Role:        role,
		Color:       color,
		Resources:   make(Resources, len(rules.Resources)),
		Bureaucracy: make(Bureaucracy, len(rules.Bureaucracy)),
		Relations:   make(map[string]Relation),
		Modifiers:   make(map[string]float64),
		Territories: make(map[string]*TerritoryState),
		Military:    make(map[string]*Force),
	}
	for _, res := range rules.Resources {
		n.Resources[res] = 0
	}
	for category, capacity := range rules.Bureaucracy {
		n.Bureaucracy[category] = Capacity{Capacity: capacity}
	}
	return n
}

// territory returns the state of an owned territory.
func (n *Nation) territory(name string) (*TerritoryState, error) {
	ts, ok := n.Territories[name]
	if !ok {
		return nil, inputf(ErrNotOwned, "%s does not own %q", n.Name, name)
	}
	return ts, nil
}

// Owns reports whether the nation owns the territory.
func (n *Nation) Owns(territory string) bool {
	_, ok := n.Territories[territory]
	return ok
}

// TerritoryNames returns owned territories in name order.
func (n *Nation) TerritoryNames() []string {
	return sortedKeys(n.Territories)
}

// TaxRate returns the ruleset base rate plus the nation's modifier.
func (n *Nation) TaxRate(rules *gamerule.Gamerule) float64 {
	return rules.Modifiers[gamerule.ModifierTaxRate] + n.Modifiers[gamerule.ModifierTaxRate]
}

// ManpowerCost returns the Money cost per recruited soldier.
func (n *Nation) ManpowerCost(rules *gamerule.Gamerule) float64 {
	return rules.Modifiers[gamerule.ModifierManpowerCost] + n.Modifiers[gamerule.ModifierManpowerCost]
}

// RelationWith returns the stance toward another nation.
func (n *Nation) RelationWith(other string) Relation {
	return n.Relations[other]
}

// SetRelation records a stance; an empty relation means neutral.
func (n *Nation) SetRelation(other string, r Relation) {
	if r == "" {
		delete(n.Relations, other)
		return
	}
	n.Relations[other] = r
}

// Unmobilized returns the total unmobilized population across territories.
func (n *Nation) Unmobilized() int {
	total := 0
	for _, ts := range n.Territories {
		total += ts.Headroom()
	}
	return total
}

// AddPopulation adds people to the cohort matching occupation and
// identifiers, creating the cohort on first assignment. New cohorts start at
// the ruleset growth rate plus every active modifier that applies to them.
func (n *Nation) AddPopulation(rules *gamerule.Gamerule, territory, occupation string, identifiers map[string]string, size int) error {
	ts, err := n.territory(territory)
	if err != nil {
		return err
	}
	if size <= 0 {
		return inputf(ErrInvalidArgument, "population size must be positive, got %d", size)
	}
	if err := ValidateCohort(rules, occupation, identifiers); err != nil {
		return err
	}

	if c := ts.Population.Find(CohortKey(occupation, identifiers)); c != nil {
		c.Size += size
		return nil
	}

	ids := make(map[string]string, len(identifiers))
	for k, v := range identifiers {
		ids[k] = v
	}
	c := &Cohort{
		Size:        size,
		GrowthRate:  roundRate(rules.GrowthRate),
		Occupation:  occupation,
		Identifiers: ids,
	}
	if err := n.deriveModifiers(rules, territory, c); err != nil {
		return err
	}
	ts.Population = append(ts.Population, c)
	return nil
}

// RemovePopulation removes people from a cohort; the cohort is deleted once
// empty. Mobilized people cannot be removed.
func (n *Nation) RemovePopulation(territory, occupation string, identifiers map[string]string, size int) error {
	ts, err := n.territory(territory)
	if err != nil {
		return err
	}
	c := ts.Population.Find(CohortKey(occupation, identifiers))
	if c == nil {
		return inputf(ErrInvalidArgument, "no %s cohort in %q", occupation, territory)
	}
	if size <= 0 || size > c.Available() {
		return inputf(ErrInsufficientManpower, "cannot remove %d of %d unmobilized", size, c.Available())
	}

	c.Size -= size
	if c.Size == 0 {
		kept := ts.Population[:0]
		for _, other := range ts.Population {
			if other != c {
				kept = append(kept, other)
			}
		}
		ts.Population = kept
	}
	return nil
}

// growPopulation compounds every cohort's growth over the elapsed months.
func (n *Nation) growPopulation(months int) {
	for _, ts := range n.Territories {
		for _, c := range ts.Population {
			c.Grow(months)
		}
	}
}

// taxIncome returns unmobilized population times the tax rate times months.
func (n *Nation) taxIncome(rules *gamerule.Gamerule, months int) float64 {
	return float64(n.Unmobilized()) * n.TaxRate(rules) * float64(months)
}
