package world

import (
	"container/heap"
	"fmt"
)

// Step is one leg of a path.
type Step struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
	Cumulative float64 `json:"cumulative"`
}

// PathTo finds the shortest path between two named territories.
// The start territory is not part of the result, so a path to itself is empty.
func (w *World) PathTo(start, target string) ([]Step, error) {
	from, err := w.Territory(start)
	if err != nil {
		return nil, err
	}
	to, err := w.Territory(target)
	if err != nil {
		return nil, err
	}
	return w.PathBetween(from.ID, to.ID)
}

// PathBetween runs A* over territory ids. The heuristic is the straight-line
// distance between positions; ties on f-score go to the lowest id.
func (w *World) PathBetween(start, target int) ([]Step, error) {
	if _, err := w.TerritoryByID(start); err != nil {
		return nil, err
	}
	goal, err := w.TerritoryByID(target)
	if err != nil {
		return nil, err
	}
	if start == target {
		return []Step{}, nil
	}

	h := func(id int) float64 {
		return w.Territories[id].Position.DistanceTo(goal.Position)
	}

	gScore := map[int]float64{start: 0}
	fScore := map[int]float64{start: h(start)}
	cameFrom := make(map[int]int)
	closed := make(map[int]bool)

	open := &openSet{{id: start, f: fScore[start]}}
	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem)
		if closed[cur.id] || cur.f > fScore[cur.id] {
			continue
		}
		if cur.id == target {
			return w.reconstruct(cameFrom, start, target), nil
		}
		closed[cur.id] = true

		for _, nid := range w.Territories[cur.id].NeighborIDs() {
			if closed[nid] {
				continue
			}
			g := gScore[cur.id] + w.Territories[cur.id].Neighbors[nid]
			if best, seen := gScore[nid]; seen && g >= best {
				continue
			}
			cameFrom[nid] = cur.id
			gScore[nid] = g
			fScore[nid] = g + h(nid)
			heap.Push(open, openItem{id: nid, f: fScore[nid]})
		}
	}

	return nil, fmt.Errorf("%w: no path from %q to %q", ErrUnreachable,
		w.Territories[start].Name, goal.Name)
}

func (w *World) reconstruct(cameFrom map[int]int, start, target int) []Step {
	var ids []int
	for cur := target; cur != start; cur = cameFrom[cur] {
		ids = append(ids, cur)
	}

	steps := make([]Step, 0, len(ids))
	prev := start
	total := 0.0
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		d := w.Territories[prev].Neighbors[id]
		total += d
		steps = append(steps, Step{
			ID:         id,
			Name:       w.Territories[id].Name,
			Distance:   d,
			Cumulative: total,
		})
		prev = id
	}
	return steps
}

type openItem struct {
	id int
	f  float64
}

// openSet is a min-heap on f-score, then id.
type openSet []openItem

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].id < s[j].id
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any)   { *s = append(*s, x.(openItem)) }
func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}
