package game

import (
	"log/slog"

	"grand-strategy/internal/gamerule"
)

// Interception is a moving force stopped by an enemy.
type Interception struct {
	Mover     ForceRef `json:"mover"`
	Defender  ForceRef `json:"defender"`
	Territory string   `json:"territory"`
}

// intercept stops moving forces that would enter a territory held by an enemy
// this turn. The first such territory on the path wins. The mover stops there
// and both sides start battling. A defender must be stationary (Active or
// Inactive); moving forces never intercept each other.
func (s *Savegame) intercept(rules *gamerule.Gamerule, months int) ([]Interception, error) {
	var out []Interception
	for _, name := range s.NationNames() {
		n := s.Nations[name]
		for _, fname := range sortedKeys(n.Military) {
			f := n.Military[fname]
			if f.Status.Kind != StatusMoving {
				continue
			}
			speed, err := f.Speed(rules)
			if err != nil {
				return nil, err
			}
			reach := legsReachable(f.Path, speed*float64(months))
			for _, step := range f.Path[:reach] {
				def, ok := s.defenderAt(name, step.Name)
				if !ok {
					continue
				}
				mover := ForceRef{Nation: name, Force: fname}
				f.Location = step.Name
				engage(f, mover, s.Nations[def.Nation].Military[def.Force], def)
				out = append(out, Interception{Mover: mover, Defender: def, Territory: step.Name})
				slog.Debug("force intercepted", "mover", mover, "defender", def, "territory", step.Name)
				break
			}
		}
	}
	return out, nil
}

// defenderAt finds the first stationary force hostile to nation in a territory.
func (s *Savegame) defenderAt(nation, territory string) (ForceRef, bool) {
	for _, other := range s.NationNames() {
		if !s.hostile(nation, other) {
			continue
		}
		military := s.Nations[other].Military
		for _, fname := range sortedKeys(military) {
			f := military[fname]
			if f.Location != territory {
				continue
			}
			if f.Status.Kind == StatusActive || f.Status.Kind == StatusInactive {
				return ForceRef{Nation: other, Force: fname}, true
			}
		}
	}
	return ForceRef{}, false
}
