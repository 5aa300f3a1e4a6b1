package game

import (
	"math"
	"sort"
)

const epsilon = 1e-9

// Resources is a nation's resource ledger, or a delta to apply to one.
type Resources map[string]float64

// Add merges a delta into the ledger.
func (r Resources) Add(delta map[string]float64) {
	for k, v := range delta {
		r[k] += v
	}
}

// Sub removes amounts from the ledger.
func (r Resources) Sub(cost map[string]float64) {
	for k, v := range cost {
		r[k] -= v
	}
}

// Scaled returns a copy with every value multiplied by f.
func (r Resources) Scaled(f float64) Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = v * f
	}
	return out
}

// Clone returns an independent copy.
func (r Resources) Clone() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Missing returns the first resource, in name order, the ledger cannot cover.
func (r Resources) Missing(cost map[string]float64) (name string, need, have float64, ok bool) {
	for _, k := range sortedKeys(cost) {
		if cost[k] > 0 && r[k]+epsilon < cost[k] {
			return k, cost[k], r[k], true
		}
	}
	return "", 0, 0, false
}

// Capacity is a bureaucracy category's load and capacity.
type Capacity struct {
	Load     float64 `json:"load"`
	Capacity float64 `json:"capacity"`
}

// Bureaucracy maps a category to its capacity.
type Bureaucracy map[string]Capacity

// Check verifies the cost fits in the remaining capacity.
func (b Bureaucracy) Check(cost map[string]float64) error {
	for _, k := range sortedKeys(cost) {
		c := b[k]
		if cost[k] > 0 && c.Load+cost[k] > c.Capacity+epsilon {
			return inputf(ErrInsufficientBureaucracy, "need %g %s, have %g of %g free",
				cost[k], k, math.Max(c.Capacity-c.Load, 0), c.Capacity)
		}
	}
	return nil
}

// Take adds load.
func (b Bureaucracy) Take(cost map[string]float64) {
	for k, v := range cost {
		c := b[k]
		c.Load += v
		b[k] = c
	}
}

// Release removes load, never going below zero.
func (b Bureaucracy) Release(cost map[string]float64) {
	for k, v := range cost {
		c := b[k]
		c.Load = math.Max(c.Load-v, 0)
		b[k] = c
	}
}

// Extend adds capacity (negative deltas shrink it).
func (b Bureaucracy) Extend(delta map[string]float64) {
	for k, v := range delta {
		c := b[k]
		c.Capacity += v
		b[k] = c
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
