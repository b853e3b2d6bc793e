package pathfind

import "github.com/jwebster45206/npc-engine/pkg/geom"

// NearestWalkable searches square rings of growing radius around p, step
// pixels apart, and returns the first walkable point found. Points on a
// ring are visited clockwise from the top-left corner, so the result is
// deterministic.
func NearestWalkable(walkable WalkableFunc, p geom.Point, maxRadius, step float64) (geom.Point, bool) {
	if walkable(p.X, p.Y) {
		return p, true
	}
	if step <= 0 {
		step = 10
	}
	for r := step; r <= maxRadius; r += step {
		best := geom.Point{}
		bestDist := -1.0
		for _, q := range ring(p, r, step) {
			if !walkable(q.X, q.Y) {
				continue
			}
			// Within a ring prefer the point closest to p.
			if d := p.Dist(q); bestDist < 0 || d < bestDist {
				best, bestDist = q, d
			}
		}
		if bestDist >= 0 {
			return best, true
		}
	}
	return p, false
}

func ring(c geom.Point, r, step float64) []geom.Point {
	var pts []geom.Point
	for x := -r; x < r; x += step {
		pts = append(pts, geom.Pt(c.X+x, c.Y-r))
	}
	for y := -r; y < r; y += step {
		pts = append(pts, geom.Pt(c.X+r, c.Y+y))
	}
	for x := r; x > -r; x -= step {
		pts = append(pts, geom.Pt(c.X+x, c.Y+r))
	}
	for y := r; y > -r; y -= step {
		pts = append(pts, geom.Pt(c.X-r, c.Y+y))
	}
	return pts
}
