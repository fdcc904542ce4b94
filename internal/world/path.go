package world

import "container/heap"

// CanReach reports whether a walker starting at from can arrive at to.
// Breadth-first flood over passable hexes.
func (m *Map) CanReach(from, to HexCoord) bool {
	if !m.Standable(from) || !m.Standable(to) {
		return false
	}
	if from == to {
		return true
	}
	seen := map[HexCoord]bool{from: true}
	queue := []HexCoord{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range cur.Neighbors() {
			if seen[n] || !m.Standable(n) {
				continue
			}
			if n == to {
				return true
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return false
}

// FindPath returns the cells to walk from `from` (exclusive) to `to`
// (inclusive) using A* with hex distance as the heuristic. Returns nil when
// no path exists.
func (m *Map) FindPath(from, to HexCoord) []HexCoord {
	if !m.Standable(to) {
		return nil
	}
	if from == to {
		return []HexCoord{}
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{coord: from, f: Distance(from, to)})
	cameFrom := map[HexCoord]HexCoord{from: from}
	gScore := map[HexCoord]int{from: 0}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if cur.coord == to {
			return rebuild(cameFrom, from, to)
		}
		if cur.g > gScore[cur.coord] {
			continue // Stale entry
		}
		for _, n := range cur.coord.Neighbors() {
			if !m.Standable(n) {
				continue
			}
			g := gScore[cur.coord] + 1
			if old, ok := gScore[n]; ok && g >= old {
				continue
			}
			gScore[n] = g
			cameFrom[n] = cur.coord
			heap.Push(open, &pathNode{coord: n, g: g, f: g + Distance(n, to)})
		}
	}
	return nil
}

func rebuild(cameFrom map[HexCoord]HexCoord, from, to HexCoord) []HexCoord {
	var rev []HexCoord
	for c := to; c != from; c = cameFrom[c] {
		rev = append(rev, c)
	}
	path := make([]HexCoord, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

type pathNode struct {
	coord HexCoord
	g, f  int
	index int
}

// pathQueue is a min-heap on f, ties broken by coordinate for determinism.
type pathQueue []*pathNode

func (q pathQueue) Len() int { return len(q) }

func (q pathQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return less(q[i].coord, q[j].coord)
}

func (q pathQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *pathQueue) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *pathQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

// Intner is the slice of a random source the cell finder needs.
type Intner interface {
	Intn(n int) int
}

// TryFindRandomCellNear samples up to tries cells within radius of center
// and returns the first one accepted by ok.
func (m *Map) TryFindRandomCellNear(center HexCoord, radius, tries int, rng Intner, ok func(HexCoord) bool) (HexCoord, bool) {
	candidates := Within(center, radius)
	if len(candidates) == 0 {
		return HexCoord{}, false
	}
	for i := 0; i < tries; i++ {
		c := candidates[rng.Intn(len(candidates))]
		if m.InBounds(c) && ok(c) {
			return c, true
		}
	}
	return HexCoord{}, false
}
