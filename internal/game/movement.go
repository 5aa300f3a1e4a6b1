package game

import (
	"errors"
	"math"

	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/world"
)

// MoveForce orders an active force to march to a territory along the
// shortest path.
func (n *Nation) MoveForce(w *world.World, force, target string) error {
	f, err := n.Force(force)
	if err != nil {
		return err
	}
	if !f.Status.IsActive() {
		return inputf(ErrInvalidStatus, "force %q is %s", force, f.Status)
	}
	path, err := w.PathTo(f.Location, target)
	switch {
	case errors.Is(err, world.ErrUnknownTerritory):
		return inputf(ErrUnknownTerritory, "%v", err)
	case errors.Is(err, world.ErrUnreachable):
		return inputf(ErrUnreachable, "%q to %q", f.Location, target)
	case err != nil:
		return logicf(ErrCorruptState, "path for %q: %v", force, err)
	}
	if len(path) == 0 {
		return nonFatalf("force %q is already in %q", force, target)
	}

	f.Path = path
	f.Status = Status{Kind: StatusMoving}
	return nil
}

// StopForce halts a moving force where it stands.
func (n *Nation) StopForce(force string) error {
	f, err := n.Force(force)
	if err != nil {
		return err
	}
	if f.Status.Kind != StatusMoving {
		return nonFatalf("force %q is not moving", force)
	}
	f.Path = nil
	f.Status = Active()
	return nil
}

// Speed returns the distance per month of the slowest unit in the force.
func (f *Force) Speed(rules *gamerule.Gamerule) (float64, error) {
	speed := math.Inf(1)
	for _, name := range sortedKeys(f.Units) {
		bp, err := rules.Unit(f.Units[name].Type)
		if err != nil {
			return 0, logicf(ErrCorruptState, "unit %q: %v", name, err)
		}
		speed = math.Min(speed, bp.Speed)
	}
	if math.IsInf(speed, 1) {
		return 0, nil
	}
	return speed, nil
}

// legsReachable counts how many whole legs of a path fit in the budget.
// Partial legs do not count.
func legsReachable(path []world.Step, budget float64) int {
	spent := 0.0
	for i, step := range path {
		spent += step.Distance
		if spent > budget+epsilon {
			return i
		}
	}
	return len(path)
}

// advance moves the force along its path for the elapsed months. Leftover
// movement does not carry over to the next turn.
func (f *Force) advance(rules *gamerule.Gamerule, months int) (bool, error) {
	speed, err := f.Speed(rules)
	if err != nil {
		return false, err
	}
	k := legsReachable(f.Path, speed*float64(months))
	if k > 0 {
		f.Location = f.Path[k-1].Name
		f.Path = rebase(f.Path[k:])
	}
	if len(f.Path) == 0 {
		f.Path = nil
		f.Status = Active()
	}
	return k > 0, nil
}

// rebase restarts cumulative distances from the force's current location.
func rebase(path []world.Step) []world.Step {
	if len(path) == 0 {
		return nil
	}
	out := make([]world.Step, len(path))
	total := 0.0
	for i, s := range path {
		total += s.Distance
		s.Cumulative = total
		out[i] = s
	}
	return out
}
