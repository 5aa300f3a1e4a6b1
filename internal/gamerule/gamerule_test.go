package gamerule

import (
	"errors"
	"testing"
)

func TestLoadStandardRuleset(t *testing.T) {
	g, err := Load("testdata/standard.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if g.Name != "standard" {
		t.Errorf("Expected name standard, got %q", g.Name)
	}
	if !g.HasResource(Money) {
		t.Error("Expected Money resource")
	}
	if len(g.Buildings) != 4 {
		t.Errorf("Expected 4 buildings, got %d", len(g.Buildings))
	}

	farm, err := g.Building("Farm")
	if err != nil {
		t.Fatalf("Building(Farm) failed: %v", err)
	}
	if farm.MaxPerTerritory() != 3 {
		t.Errorf("Expected farm maximum 3, got %d", farm.MaxPerTerritory())
	}

	mine, _ := g.Building("Mine")
	if mine.MaxPerTerritory() != 1 {
		t.Errorf("Expected default maximum 1, got %d", mine.MaxPerTerritory())
	}

	chancery, _ := g.Building("Chancery")
	if chancery.Effects == nil || chancery.Effects.Nation == nil {
		t.Fatal("Expected chancery nation effects")
	}
	if chancery.Effects.Nation.Modifiers[ModifierTaxRate] != 0.005 {
		t.Errorf("Unexpected tax modifier %v", chancery.Effects.Nation.Modifiers[ModifierTaxRate])
	}

	inf, err := g.Unit("Infantry")
	if err != nil {
		t.Fatalf("Unit(Infantry) failed: %v", err)
	}
	if m := inf.Multiplier(250); m != 2.5 {
		t.Errorf("Expected multiplier 2.5, got %v", m)
	}
}

func TestBlueprintNotFound(t *testing.T) {
	g, err := Load("testdata/standard.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := g.Building("Castle"); !errors.Is(err, ErrBlueprintNotFound) {
		t.Errorf("Expected ErrBlueprintNotFound, got %v", err)
	}
	if _, err := g.Unit("Dragon"); !errors.Is(err, ErrBlueprintNotFound) {
		t.Errorf("Expected ErrBlueprintNotFound, got %v", err)
	}
}

func TestValidateRejectsBadRulesets(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "resources: [Money]\noccupations: [Farmer]\n"},
		{"missing money", "name: x\nresources: [Food]\noccupations: [Farmer]\n"},
		{"no occupations", "name: x\nresources: [Money]\n"},
		{"unknown cost resource", `
name: x
resources: [Money]
occupations: [Farmer]
buildings:
  Farm:
    costs: {Gold: 1}
`},
		{"unknown prerequisite", `
name: x
resources: [Money]
occupations: [Farmer]
buildings:
  Farm:
    prerequisites:
      - {building: Barn, scope: Nation}
`},
		{"unit without speed", `
name: x
resources: [Money]
occupations: [Farmer]
units:
  Infantry:
    costs: {Money: 1}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidRuleset) {
				t.Errorf("Expected ErrInvalidRuleset, got %v", err)
			}
		})
	}
}

func TestIdentifierAndOccupationLookup(t *testing.T) {
	g, err := Load("testdata/standard.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !g.HasOccupation("Miner") || g.HasOccupation("Pirate") {
		t.Error("Occupation lookup mismatch")
	}
	if !g.ValidIdentifier("Culture", "Northern") {
		t.Error("Expected Northern to be a valid culture")
	}
	if g.ValidIdentifier("Culture", "Old Faith") {
		t.Error("Old Faith is a religion, not a culture")
	}
}
