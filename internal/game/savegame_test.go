package game

import (
	"context"
	"errors"
	"testing"

	"grand-strategy/internal/world"
)

func TestTransferRoundTripRestoresTerritory(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000, "Timber": 100}))
	mustOK(t, s.BuyBuilding("Alpha", "T0", "Chancery"))
	mustOK(t, s.BuyBuilding("Alpha", "T0", "Farm"))

	territory := snapshot(t, nation(t, s, "Alpha").Territories["T0"])
	alphaBefore := snapshot(t, nation(t, s, "Alpha"))
	betaBefore := snapshot(t, nation(t, s, "Beta"))

	mustOK(t, s.TransferTerritory("T0", "Beta"))

	alpha, beta := nation(t, s, "Alpha"), nation(t, s, "Beta")
	if alpha.Owns("T0") || !beta.Owns("T0") {
		t.Fatal("Expected T0 to move to Beta")
	}
	if got := alpha.Bureaucracy["Administration"].Capacity; got != 20 {
		t.Errorf("Expected Alpha to lose Chancery capacity, got %v", got)
	}
	if got := beta.Bureaucracy["Administration"].Capacity; got != 30 {
		t.Errorf("Expected Beta to gain Chancery capacity, got %v", got)
	}
	if got := beta.Territories["T2"].Population[0].GrowthRate; got != 0.0025 {
		t.Errorf("Expected Beta's Northern cohort to gain the Chancery modifier, got %v", got)
	}

	mustOK(t, s.TransferTerritory("T0", "Alpha"))

	if got := snapshot(t, nation(t, s, "Alpha").Territories["T0"]); got != territory {
		t.Errorf("Territory state changed after round trip:\nbefore %s\nafter  %s", territory, got)
	}
	if got := snapshot(t, nation(t, s, "Alpha")); got != alphaBefore {
		t.Errorf("Alpha changed after round trip:\nbefore %s\nafter  %s", alphaBefore, got)
	}
	if got := snapshot(t, nation(t, s, "Beta")); got != betaBefore {
		t.Errorf("Beta changed after round trip:\nbefore %s\nafter  %s", betaBefore, got)
	}
}

func TestTransferMovesConstructionLoad(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 100, "Timber": 10}))
	mustOK(t, s.AddResources("Beta", map[string]float64{"Money": 100, "Timber": 10}))
	mustOK(t, s.BuyBuilding("Alpha", "T0", "Farm"))
	mustOK(t, s.BuyBuilding("Beta", "T2", "Farm"))

	load := func(name string) float64 {
		return nation(t, s, name).Bureaucracy["Administration"].Load
	}

	mustOK(t, s.TransferTerritory("T0", "Beta"))
	if load("Alpha") != 0 || load("Beta") != 4 {
		t.Fatalf("Expected load to follow the Farm, got Alpha %v Beta %v", load("Alpha"), load("Beta"))
	}

	for range 2 {
		if _, err := s.AdvanceTurn(context.Background(), 1); err != nil {
			t.Fatalf("AdvanceTurn failed: %v", err)
		}
	}
	if load("Alpha") != 0 || load("Beta") != 0 {
		t.Errorf("Expected no load after both Farms complete, got Alpha %v Beta %v", load("Alpha"), load("Beta"))
	}
}

func TestDestroyTransferredConstruction(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 100, "Timber": 10}))
	mustOK(t, s.BuyBuilding("Alpha", "T0", "Farm"))
	mustOK(t, s.TransferTerritory("T0", "Beta"))

	mustOK(t, s.DestroyBuilding("Beta", "T0", "Farm", 0))
	if got := nation(t, s, "Beta").Bureaucracy["Administration"].Load; got != 0 {
		t.Errorf("Expected Beta's load released, got %v", got)
	}
	if got := nation(t, s, "Alpha").Bureaucracy["Administration"].Load; got != 0 {
		t.Errorf("Expected Alpha to carry no load, got %v", got)
	}
}

func TestTransferToCurrentOwnerIsNonFatal(t *testing.T) {
	s := newTestSession(t)
	gen := s.Save.Map.Generation

	err := s.TransferTerritory("T0", "Alpha")
	if !IsNonFatal(err) || !errors.Is(err, ErrNothingToDo) {
		t.Errorf("Expected non-fatal, got %v", err)
	}
	if s.Save.Map.Generation != gen {
		t.Error("No-op transfer must not touch the map")
	}

	if err := s.TransferTerritory("Atlantis", "Alpha"); !IsInput(err) {
		t.Errorf("Expected input error for unknown territory, got %v", err)
	}
	if err := s.TransferTerritory("T3", "Gamma"); !errors.Is(err, ErrUnknownNation) {
		t.Errorf("Expected unknown nation, got %v", err)
	}

	mustOK(t, s.TransferTerritory("T3", "Beta"))
	if s.Save.Map.Generation != gen+1 || !s.Save.Map.Changed {
		t.Errorf("Expected map marked stale, got %+v", s.Save.Map)
	}
}

func TestOwnerDetectsDoubleClaim(t *testing.T) {
	s := newTestSession(t)

	owner, err := s.Save.Owner("T2")
	mustOK(t, err)
	if owner != "Beta" {
		t.Errorf("Expected Beta, got %q", owner)
	}
	if owner, _ := s.Save.Owner("T3"); owner != "" {
		t.Errorf("Expected T3 unowned, got %q", owner)
	}

	t2, _ := s.World.Territory("T2")
	nation(t, s, "Alpha").Territories["T2"] = NewTerritoryState(t2)
	if _, err := s.Save.Owner("T2"); !IsLogic(err) || !errors.Is(err, ErrDoubleClaim) {
		t.Errorf("Expected double claim logic error, got %v", err)
	}
}

func TestRolesAndRelations(t *testing.T) {
	s := newTestSession(t)

	n, err := s.Save.NationForRole("role-b")
	mustOK(t, err)
	if n.Name != "Beta" {
		t.Errorf("Expected Beta for role-b, got %q", n.Name)
	}
	if err := s.Save.BindRole("Alpha", "role-b"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected taken role rejected, got %v", err)
	}
	mustOK(t, s.Save.UnbindRole("Beta"))
	if _, err := s.Save.NationForRole("role-b"); !IsInput(err) {
		t.Errorf("Expected unbound role lookup to fail, got %v", err)
	}
	if _, ok := s.Save.Nations["Beta"]; !ok {
		t.Error("Unbinding must keep the nation")
	}

	if err := s.AddNation("Alpha", "", ""); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected duplicate nation rejected, got %v", err)
	}
	if err := s.Save.SetRelation("Alpha", "Alpha", RelationEnemy); !IsInput(err) {
		t.Errorf("Expected self relation rejected, got %v", err)
	}
	mustOK(t, s.Save.SetRelation("Alpha", "Beta", RelationEnemy))
	if !s.Save.hostile("Beta", "Alpha") {
		t.Error("Expected hostility to be seen from either side")
	}
	mustOK(t, s.Save.SetRelation("Alpha", "Beta", ""))
	if s.Save.hostile("Alpha", "Beta") {
		t.Error("Expected neutral after clearing")
	}
}

type fakeRenderer struct {
	calls  int
	colors map[string]string
}

func (r *fakeRenderer) Render(_ context.Context, _ *world.World, colors map[string]string) (string, error) {
	r.calls++
	r.colors = colors
	return "map.png", nil
}

func TestRefreshMapOnlyWhenChanged(t *testing.T) {
	s := newTestSession(t)
	r := &fakeRenderer{}

	rendered, err := s.Save.RefreshMap(context.Background(), s.World, r)
	mustOK(t, err)
	if !rendered || s.Save.Map.Image != "map.png" || s.Save.Map.Changed {
		t.Errorf("Expected a render, got %+v", s.Save.Map)
	}
	if r.colors["T0"] != "#ff0000" || r.colors["T2"] != "#0000ff" {
		t.Errorf("Unexpected colors %v", r.colors)
	}

	rendered, err = s.Save.RefreshMap(context.Background(), s.World, r)
	mustOK(t, err)
	if rendered || r.calls != 1 {
		t.Errorf("Expected no render when map is fresh, got %d calls", r.calls)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "Army", "A"))
	before := snapshot(t, s.Save)

	c := s.Save.Clone()
	c.Nations["Alpha"].Resources["Money"] = 0
	c.Nations["Alpha"].Territories["T0"].Population[0].Size = 1
	c.Nations["Alpha"].Military["Army"].Units["A"].Size = 1

	if snapshot(t, s.Save) != before {
		t.Error("Mutating the clone changed the original")
	}
}
