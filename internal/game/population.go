package game

import (
	"math"
	"sort"
	"strings"

	"grand-strategy/internal/gamerule"
)

// Cohort is a population group sharing an occupation and identifier values
// within one territory.
type Cohort struct {
	Size       int     `json:"size"`
	GrowthRate float64 `json:"growth_rate"`
	Occupation string  `json:"occupation"`
	// Identifiers holds exactly one value per identifier category.
	Identifiers map[string]string `json:"identifiers"`
	// Manpower is the mobilized part of Size.
	Manpower int `json:"manpower"`
}

// Key identifies a cohort within its territory.
func (c *Cohort) Key() string {
	return CohortKey(c.Occupation, c.Identifiers)
}

// CohortKey builds the identity key for an occupation and identifier set.
func CohortKey(occupation string, identifiers map[string]string) string {
	parts := make([]string, 0, len(identifiers)+1)
	parts = append(parts, occupation)
	for _, k := range sortedKeys(identifiers) {
		parts = append(parts, k+"="+identifiers[k])
	}
	return strings.Join(parts, "|")
}

// Available returns the unmobilized population.
func (c *Cohort) Available() int {
	return c.Size - c.Manpower
}

// Grow compounds the growth rate over the given number of months.
func (c *Cohort) Grow(months int) {
	if months <= 0 || c.Size == 0 {
		return
	}
	grown := math.Floor(float64(c.Size) * math.Pow(1+c.GrowthRate, float64(months)))
	c.Size = int(math.Max(grown, 0))
	if c.Manpower > c.Size {
		c.Manpower = c.Size
	}
}

// Matches reports whether a modifier applies to this cohort.
func (c *Cohort) Matches(m gamerule.PopulationModifier) bool {
	if m.Occupation != "" && m.Occupation != c.Occupation {
		return false
	}
	if len(m.Identifiers) == 0 {
		return true
	}
	values := make(map[string]bool, len(c.Identifiers))
	for _, v := range c.Identifiers {
		values[v] = true
	}
	for _, want := range m.Identifiers {
		if !values[want] {
			return false
		}
	}
	return true
}

// ApplyModifiers adjusts the growth rate by every matching modifier.
// With reverse set the adjustment is undone.
func (c *Cohort) ApplyModifiers(mods []gamerule.PopulationModifier, reverse bool) {
	sign := 1.0
	if reverse {
		sign = -1
	}
	for _, m := range mods {
		if !c.Matches(m) {
			continue
		}
		c.GrowthRate = roundRate(c.GrowthRate + sign*m.GrowthRate)
	}
}

func roundRate(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Population is the cohort list of one territory.
type Population []*Cohort

// Find returns the cohort with the given key.
func (p Population) Find(key string) *Cohort {
	for _, c := range p {
		if c.Key() == key {
			return c
		}
	}
	return nil
}

// Total returns the total population.
func (p Population) Total() int {
	total := 0
	for _, c := range p {
		total += c.Size
	}
	return total
}

// Manpower returns the mobilized population.
func (p Population) Manpower() int {
	total := 0
	for _, c := range p {
		total += c.Manpower
	}
	return total
}

// Headroom returns the unmobilized population.
func (p Population) Headroom() int {
	return p.Total() - p.Manpower()
}

// Recruit mobilizes x people, split across cohorts in proportion to size.
// Each share is rounded on its own, so the sum can drift from x by up to
// one person per cohort.
func (p Population) Recruit(x int) error {
	if x < 0 {
		return inputf(ErrInvalidArgument, "cannot recruit %d", x)
	}
	if x > p.Headroom() {
		return inputf(ErrInsufficientManpower, "need %d, have %d", x, p.Headroom())
	}
	total := p.Total()
	if x == 0 || total == 0 {
		return nil
	}
	for _, c := range p.ordered() {
		share := int(math.Round(float64(x) * float64(c.Size) / float64(total)))
		c.Manpower += min(share, c.Available())
	}
	return nil
}

// Demobilize returns x mobilized people to the population, split in
// proportion to each cohort's current manpower. Rounding drifts as in Recruit.
func (p Population) Demobilize(x int) error {
	if x < 0 {
		return inputf(ErrInvalidArgument, "cannot disband %d", x)
	}
	mobilized := p.Manpower()
	if x > mobilized {
		return inputf(ErrInsufficientManpower, "cannot disband %d, only %d mobilized", x, mobilized)
	}
	if x == 0 {
		return nil
	}
	for _, c := range p.ordered() {
		share := int(math.Round(float64(x) * float64(c.Manpower) / float64(mobilized)))
		c.Manpower -= min(share, c.Manpower)
	}
	return nil
}

// ordered returns cohorts sorted by key so rounding is reproducible.
func (p Population) ordered() []*Cohort {
	out := append([]*Cohort(nil), p...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ValidateCohort checks occupation and identifiers against the ruleset.
func ValidateCohort(rules *gamerule.Gamerule, occupation string, identifiers map[string]string) error {
	if !rules.HasOccupation(occupation) {
		return inputf(ErrInvalidArgument, "unknown occupation %q", occupation)
	}
	if len(identifiers) != len(rules.Identifiers) {
		return inputf(ErrInvalidArgument, "need one identifier per category (%d), got %d",
			len(rules.Identifiers), len(identifiers))
	}
	for category, value := range identifiers {
		if _, ok := rules.Identifiers[category]; !ok {
			return inputf(ErrInvalidArgument, "unknown identifier category %q", category)
		}
		if !rules.ValidIdentifier(category, value) {
			return inputf(ErrInvalidArgument, "%q is not a valid %s", value, category)
		}
	}
	return nil
}
