package world

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Terrain tags produced by the generator.
const (
	TerrainPlains    = "plains"
	TerrainForest    = "forest"
	TerrainHills     = "hills"
	TerrainMountains = "mountains"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Name        string
	Seed        int64   // 0 = random
	Territories int     // Number of territories to place
	Spacing     float64 // Grid spacing between territory centers
	Jitter      float64 // Max random offset as a fraction of Spacing
	// TerrainWeighted multiplies edge distances by the mean terrain cost
	// of both endpoints.
	TerrainWeighted bool
	// Yields maps a terrain tag to the monthly resource pool it provides.
	Yields map[string]map[string]float64
	// Nodes maps a terrain tag to the extraction nodes it provides.
	Nodes map[string]map[string]int
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Name:        "generated",
		Territories: 48,
		Spacing:     10,
		Jitter:      0.3,
		Yields: map[string]map[string]float64{
			TerrainPlains:    {"Food": 12},
			TerrainForest:    {"Timber": 8, "Food": 4},
			TerrainHills:     {"Iron": 4, "Food": 2},
			TerrainMountains: {"Iron": 8},
		},
		Nodes: map[string]map[string]int{
			TerrainHills:     {"Ore": 1},
			TerrainMountains: {"Ore": 2},
		},
	}
}

// terrainCost is the movement multiplier applied to weighted edges.
var terrainCost = map[string]float64{
	TerrainPlains:    1.0,
	TerrainForest:    1.25,
	TerrainHills:     1.5,
	TerrainMountains: 2.0,
}

// Generate creates a connected world. Territories sit on a jittered grid and
// are linked to their orthogonal and diagonal grid neighbors; elevation noise
// decides terrain, and terrain decides resources.
func Generate(cfg GenConfig) (*World, error) {
	if cfg.Territories < 1 {
		return nil, fmt.Errorf("%w: need at least one territory", ErrInvalidWorld)
	}
	if cfg.Spacing <= 0 {
		cfg.Spacing = 10
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))
	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	cols := int(math.Ceil(math.Sqrt(float64(cfg.Territories))))
	names := newNamer(rng)

	territories := make([]*Territory, cfg.Territories)
	grid := make(map[[2]int]*Territory, cfg.Territories)
	for i := range territories {
		col, row := i%cols, i/cols
		x := float64(col)*cfg.Spacing + (rng.Float64()*2-1)*cfg.Jitter*cfg.Spacing
		y := float64(row)*cfg.Spacing + (rng.Float64()*2-1)*cfg.Jitter*cfg.Spacing

		// Sample noise at a scale where neighbors correlate.
		elev := elevNoise.Eval2(x/(cfg.Spacing*4), y/(cfg.Spacing*4))
		moist := moistNoise.Eval2(x/(cfg.Spacing*3), y/(cfg.Spacing*3))
		terrain := classify(elev, moist)

		t := &Territory{
			ID:        i,
			Name:      names.next(terrain),
			Position:  Point{X: round2(x), Y: round2(y)},
			Neighbors: make(map[int]float64),
			Terrain:   terrain,
			Resources: copyYields(cfg.Yields[terrain]),
			Nodes:     copyNodes(cfg.Nodes[terrain]),
		}
		if elev > 0.9 {
			t.Details = append(t.Details, "peak")
		}
		territories[i] = t
		grid[[2]int{col, row}] = t
	}

	for cell, t := range grid {
		for _, d := range [][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}} {
			other, ok := grid[[2]int{cell[0] + d[0], cell[1] + d[1]}]
			if !ok {
				continue
			}
			dist := t.Position.DistanceTo(other.Position)
			if cfg.TerrainWeighted {
				dist *= (terrainCost[t.Terrain] + terrainCost[other.Terrain]) / 2
			}
			Connect(t, other, round2(dist))
		}
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("world-%d", seed)
	}
	return New(name, territories)
}

func classify(elev, moist float64) string {
	switch {
	case elev > 0.75:
		return TerrainMountains
	case elev > 0.6:
		return TerrainHills
	case moist > 0.55:
		return TerrainForest
	default:
		return TerrainPlains
	}
}

func copyYields(src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyNodes(src map[string]int) map[string]int {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// namer produces unique, pronounceable territory names.
type namer struct {
	rng  *rand.Rand
	used map[string]bool
}

var (
	nameStarts = []string{"Ar", "Bel", "Cor", "Dun", "El", "Fal", "Gar", "Hol", "Ist", "Kel", "Lor", "Mar", "Nor", "Ost", "Ral", "Sol", "Tor", "Val", "Wes", "Zar"}
	nameEnds   = []string{"ia", "mark", "heim", "wick", "dor", "mere", "gard", "ford", "holt", "vale", "stan", "more"}
	terrainTag = map[string]string{
		TerrainForest:    "Wood",
		TerrainHills:     "Downs",
		TerrainMountains: "Peaks",
	}
)

func newNamer(rng *rand.Rand) *namer {
	return &namer{rng: rng, used: make(map[string]bool)}
}

func (n *namer) next(terrain string) string {
	for attempt := 0; ; attempt++ {
		name := nameStarts[n.rng.Intn(len(nameStarts))] + nameEnds[n.rng.Intn(len(nameEnds))]
		if tag, ok := terrainTag[terrain]; ok && n.rng.Intn(3) == 0 {
			name = strings.Join([]string{name, tag}, " ")
		}
		if attempt > 20 {
			name = fmt.Sprintf("%s %d", name, attempt)
		}
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}
