package game

import (
	"errors"
	"testing"
)

func TestRecruitUnitCharges(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	alpha := nation(t, s, "Alpha")

	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 200, "First Army", "1st Foot"))

	if got := alpha.Resources["Money"]; got != 1000-20-100 {
		t.Errorf("Expected 880 Money left, got %v", got)
	}
	if got := alpha.Bureaucracy["Military"].Load; got != 2 {
		t.Errorf("Expected Military load 2, got %v", got)
	}
	if got := alpha.Territories["T0"].Headroom(); got != 800 {
		t.Errorf("Expected headroom 800, got %d", got)
	}
	f := alpha.Military["First Army"]
	if f == nil || f.Location != "T0" {
		t.Fatalf("Expected First Army in T0, got %+v", f)
	}
	if f.Status != Constructing(Date{Month: 2, Year: 1200}) {
		t.Errorf("Expected force constructing until 2/1200, got %s", f.Status)
	}

	err := s.RecruitUnit("Alpha", "T1", "Infantry", 10, "Second Army", "1st Foot")
	if !IsInput(err) || !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected duplicate unit name rejected, got %v", err)
	}
	err = s.RecruitUnit("Alpha", "T1", "Infantry", 600, "Second Army", "2nd Foot")
	if !IsInput(err) || !errors.Is(err, ErrInsufficientManpower) {
		t.Errorf("Expected manpower error, got %v", err)
	}
	err = s.RecruitUnit("Alpha", "T1", "Infantry", 10, "First Army", "2nd Foot")
	if !IsInput(err) || !errors.Is(err, ErrIncompatible) {
		t.Errorf("Expected recruiting into a distant force rejected, got %v", err)
	}
}

func TestDisbandUnitRestoresHeadroom(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	alpha := nation(t, s, "Alpha")

	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "Guard", "Watch"))
	before := alpha.Territories["T0"].Headroom()

	mustOK(t, s.DisbandUnit("Alpha", "Guard", "Watch"))

	if got := alpha.Territories["T0"].Headroom() - before; got != 100 {
		t.Errorf("Expected headroom to grow by exactly 100, got %d", got)
	}
	if _, ok := alpha.Military["Guard"]; ok {
		t.Error("Expected empty force removed")
	}
	if got := alpha.Bureaucracy["Military"].Load; got != 0 {
		t.Errorf("Expected construction load released, got %v", got)
	}
}

// Recruit rounds each cohort's share separately, so a unit's mobilized
// manpower may differ from its size by at most one person per cohort.
// Disbanding returns whatever was actually mobilized.
func TestRecruitAcrossCohortsDriftIsBounded(t *testing.T) {
	tests := []struct {
		size      int
		mobilized int
	}{
		{100, 99},
		{200, 201},
		{300, 300},
	}
	for _, tt := range tests {
		s := newTestSession(t)
		mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
		mustOK(t, s.AddPopulation("Alpha", "T0", "Farmer", southern, 1000))
		mustOK(t, s.AddPopulation("Alpha", "T0", "Miner", northern, 1000))
		ts := nation(t, s, "Alpha").Territories["T0"]
		cohorts := len(ts.Population)
		before := ts.Headroom()

		mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", tt.size, "Guard", "Watch"))
		got := ts.Manpower()
		if got != tt.mobilized {
			t.Errorf("size %d: expected %d mobilized, got %d", tt.size, tt.mobilized, got)
		}
		if drift := got - tt.size; drift < -cohorts || drift > cohorts {
			t.Errorf("size %d: drift %d exceeds %d cohorts", tt.size, drift, cohorts)
		}

		mustOK(t, s.DisbandUnit("Alpha", "Guard", "Watch"))
		if ts.Manpower() != 0 || ts.Headroom() != before {
			t.Errorf("size %d: expected headroom back to %d, got %d with %d mobilized",
				tt.size, before, ts.Headroom(), ts.Manpower())
		}
	}
}

func TestCombineForcesAtDifferentLocations(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	alpha := nation(t, s, "Alpha")

	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "North", "A"))
	mustOK(t, s.RecruitUnit("Alpha", "T1", "Infantry", 100, "South", "B"))
	north, south := snapshot(t, alpha.Military["North"]), snapshot(t, alpha.Military["South"])

	err := s.CombineForces("Alpha", "North", "South")
	if !IsInput(err) || !errors.Is(err, ErrIncompatible) {
		t.Fatalf("Expected input incompatible error, got %v", err)
	}
	if snapshot(t, alpha.Military["North"]) != north || snapshot(t, alpha.Military["South"]) != south {
		t.Error("Failed combine must not mutate either force")
	}
}

func TestCombineAndSplitForces(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	alpha := nation(t, s, "Alpha")

	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "Army", "A"))
	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "Reserve", "B"))
	mustOK(t, s.CombineForces("Alpha", "Army", "Reserve"))

	if len(alpha.Military) != 1 || len(alpha.Military["Army"].Units) != 2 {
		t.Fatalf("Expected one force with two units, got %+v", alpha.Military)
	}

	name, err := s.SplitForce("Alpha", "Army", []string{"B"})
	mustOK(t, err)
	if name != "Army 2" {
		t.Errorf("Expected auto-name Army 2, got %q", name)
	}
	if f := alpha.Military[name]; f == nil || f.Location != "T0" || f.Units["B"] == nil {
		t.Errorf("Unexpected split force %+v", f)
	}

	if _, err := s.SplitForce("Alpha", "Army", []string{"A"}); !IsInput(err) {
		t.Errorf("Expected splitting every unit to fail, got %v", err)
	}
}

func TestCombineUnitsRules(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000, "Food": 100}))
	alpha := nation(t, s, "Alpha")

	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "Army", "A"))
	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 50, "Army", "B"))
	mustOK(t, s.RecruitUnit("Alpha", "T0", "Cavalry", 100, "Army", "C"))

	if err := s.CombineUnits("Alpha", "Army", "A", "C"); !errors.Is(err, ErrIncompatible) {
		t.Errorf("Expected different types rejected, got %v", err)
	}
	mustOK(t, s.CombineUnits("Alpha", "Army", "A", "B"))
	army := alpha.Military["Army"]
	if army.Units["A"].Size != 150 || army.Units["B"] != nil {
		t.Errorf("Expected A to absorb B, got %+v", army.Units)
	}

	mustOK(t, s.SplitUnit("Alpha", "Army", "A", map[string]int{"A1": 50, "A2": 25}))
	if army.Units["A"].Size != 75 || army.Units["A1"].Size != 50 || army.Units["A2"].Size != 25 {
		t.Errorf("Unexpected sizes after split: %+v", army.Units)
	}
	if err := s.SplitUnit("Alpha", "Army", "A", map[string]int{"A3": 76}); !IsInput(err) {
		t.Errorf("Expected oversize split rejected, got %v", err)
	}
	mustOK(t, s.SplitUnit("Alpha", "Army", "A", map[string]int{"A3": 75}))
	if _, ok := army.Units["A"]; ok {
		t.Error("Expected fully split unit removed")
	}
}

func TestDisbandBattlingForceRejected(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	mustOK(t, s.AddResources("Beta", map[string]float64{"Money": 1000}))
	mustOK(t, s.RecruitUnit("Alpha", "T1", "Infantry", 100, "Army", "A"))
	mustOK(t, s.RecruitUnit("Beta", "T2", "Infantry", 100, "Guard", "G"))
	_, err := s.AdvanceTurn(t.Context(), 1)
	mustOK(t, err)

	alpha := nation(t, s, "Alpha")
	alpha.Military["Army"].Location = "T2"
	a := ForceRef{Nation: "Alpha", Force: "Army"}
	b := ForceRef{Nation: "Beta", Force: "Guard"}
	mustOK(t, s.Save.StartBattle(a, b))

	if err := s.DisbandForce("Alpha", "Army"); !errors.Is(err, ErrEngaged) {
		t.Errorf("Expected engaged error, got %v", err)
	}

	mustOK(t, s.Save.EndBattle(b))
	if !alpha.Military["Army"].Status.IsActive() || alpha.Military["Army"].Opponent != nil {
		t.Errorf("Expected opponent released too, got %+v", alpha.Military["Army"])
	}
	if err := s.Save.EndBattle(a); !IsNonFatal(err) {
		t.Errorf("Expected non-fatal for idle force, got %v", err)
	}
}

func TestSetForceActive(t *testing.T) {
	s := newTestSession(t)
	mustOK(t, s.AddResources("Alpha", map[string]float64{"Money": 1000}))
	mustOK(t, s.RecruitUnit("Alpha", "T0", "Infantry", 100, "Army", "A"))

	if err := s.SetForceActive("Alpha", "Army", false); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected constructing force toggle rejected, got %v", err)
	}
	_, err := s.AdvanceTurn(t.Context(), 1)
	mustOK(t, err)

	mustOK(t, s.SetForceActive("Alpha", "Army", false))
	if got := nation(t, s, "Alpha").Military["Army"].Status; got != Inactive() {
		t.Errorf("Expected Inactive, got %s", got)
	}
}
