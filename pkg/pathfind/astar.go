// Package pathfind finds walkable routes across a scene using A* over a
// coarse grid laid on top of the scene's pixel space.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/jwebster45206/npc-engine/pkg/geom"
)

const (
	DefaultCellSize    = 20
	DefaultMaxExpanded = 20000
	DefaultWidth       = 1920
	DefaultHeight      = 1080
)

// WalkableFunc reports whether an agent may stand at (x, y).
type WalkableFunc func(x, y float64) bool

// Pathfinder runs grid A* searches. The zero value is not usable; use New.
type Pathfinder struct {
	CellSize float64
	// MaxExpanded caps the number of nodes closed per search. Searches
	// that hit the cap report no path.
	MaxExpanded int
}

func New(cellSize float64) *Pathfinder {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Pathfinder{CellSize: cellSize, MaxExpanded: DefaultMaxExpanded}
}

type cell struct{ x, y int }

func (p *Pathfinder) cellOf(pt geom.Point) cell {
	return cell{int(math.Floor(pt.X / p.CellSize)), int(math.Floor(pt.Y / p.CellSize))}
}

func (p *Pathfinder) center(c cell) geom.Point {
	return geom.Point{
		X: float64(c.x)*p.CellSize + p.CellSize/2,
		Y: float64(c.y)*p.CellSize + p.CellSize/2,
	}
}

// FindPath returns waypoints leading from start to goal inside a
// width x height world, excluding the start position. Intermediate
// waypoints are grid cell centers that satisfy walkable; the last waypoint
// is goal itself when goal is walkable. A nil result means no route.
func (p *Pathfinder) FindPath(walkable WalkableFunc, start, goal geom.Point, width, height int) []geom.Point {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	cols := int(math.Ceil(float64(width) / p.CellSize))
	rows := int(math.Ceil(float64(height) / p.CellSize))

	startCell := p.cellOf(start)
	goalCell := p.cellOf(goal)
	inGrid := func(c cell) bool { return c.x >= 0 && c.y >= 0 && c.x < cols && c.y < rows }
	if !inGrid(goalCell) {
		return nil
	}

	goalWalkable := walkable(goal.X, goal.Y)
	goalCenterWalkable := walkable(p.center(goalCell).X, p.center(goalCell).Y)
	if !goalWalkable && !goalCenterWalkable {
		return nil
	}
	goalPoint := goal
	if !goalWalkable {
		goalPoint = p.center(goalCell)
	}
	if startCell == goalCell {
		return []geom.Point{goalPoint}
	}

	open := func(c cell) bool {
		if !inGrid(c) {
			return false
		}
		if c == goalCell {
			return true
		}
		pt := p.center(c)
		return walkable(pt.X, pt.Y)
	}

	// Open-cell lookups are memoized; walkable can be expensive.
	openCache := make(map[cell]bool)
	isOpen := func(c cell) bool {
		if v, ok := openCache[c]; ok {
			return v
		}
		v := open(c)
		openCache[c] = v
		return v
	}

	h := func(c cell) float64 {
		dx := math.Abs(float64(c.x - goalCell.x))
		dy := math.Abs(float64(c.y - goalCell.y))
		return (dx + dy) + (math.Sqrt2-2)*math.Min(dx, dy)
	}

	gScore := map[cell]float64{startCell: 0}
	parent := make(map[cell]cell)
	closed := make(map[cell]bool)
	pq := &nodeQueue{}
	heap.Push(pq, &node{c: startCell, f: h(startCell)})

	expanded := 0
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*node)
		if closed[cur.c] {
			continue
		}
		if cur.c == goalCell {
			return p.reconstruct(parent, startCell, goalCell, goalPoint)
		}
		closed[cur.c] = true
		expanded++
		if p.MaxExpanded > 0 && expanded > p.MaxExpanded {
			return nil
		}

		for _, d := range neighbors {
			next := cell{cur.c.x + d.dx, cur.c.y + d.dy}
			if closed[next] || !isOpen(next) {
				continue
			}
			// Diagonal moves may not cut a blocked corner.
			if d.dx != 0 && d.dy != 0 {
				if !isOpen(cell{cur.c.x + d.dx, cur.c.y}) || !isOpen(cell{cur.c.x, cur.c.y + d.dy}) {
					continue
				}
			}
			tentative := gScore[cur.c] + d.cost
			if old, ok := gScore[next]; ok && tentative >= old {
				continue
			}
			gScore[next] = tentative
			parent[next] = cur.c
			heap.Push(pq, &node{c: next, g: tentative, f: tentative + h(next)})
		}
	}
	return nil
}

func (p *Pathfinder) reconstruct(parent map[cell]cell, start, goal cell, goalPoint geom.Point) []geom.Point {
	var cells []cell
	for c := goal; c != start; c = parent[c] {
		cells = append(cells, c)
	}
	path := make([]geom.Point, 0, len(cells))
	for i := len(cells) - 1; i > 0; i-- {
		path = append(path, p.center(cells[i]))
	}
	return append(path, goalPoint)
}

var neighbors = [8]struct {
	dx, dy int
	cost   float64
}{
	{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {-1, 1, math.Sqrt2}, {-1, -1, math.Sqrt2},
}

type node struct {
	c     cell
	g, f  float64
	index int
}

type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].f == q[j].f {
		// Prefer deeper nodes on ties to reduce expansions.
		return q[i].g > q[j].g
	}
	return q[i].f < q[j].f
}

func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *nodeQueue) Push(x any) {
	n := x.(*node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

// PathLength sums the segment lengths of from followed by path.
func PathLength(from geom.Point, path []geom.Point) float64 {
	total := 0.0
	prev := from
	for _, pt := range path {
		total += prev.Dist(pt)
		prev = pt
	}
	return total
}
