// Package densify adds zone-spawn records inside the footprint of the
// existing ones.
package densify

import (
	"math"
	"sort"
)

// Point is a position on the ground plane (x, z)
type Point struct {
	X, Z float64
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Z-o.Z) - (a.Z-o.Z)*(b.X-o.X)
}

// ConvexHull returns the hull of points in counter-clockwise order using a
// Graham scan. Duplicates are removed first; collinear boundary points are
// dropped. Fewer than three unique points are returned as they are.
func ConvexHull(points []Point) []Point {
	seen := make(map[Point]bool, len(points))
	unique := make([]Point, 0, len(points))
	for _, p := range points {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	if len(unique) < 3 {
		return unique
	}

	// Lowest point, leftmost on ties
	pivot := 0
	for i, p := range unique {
		if p.Z < unique[pivot].Z || (p.Z == unique[pivot].Z && p.X < unique[pivot].X) {
			pivot = i
		}
	}
	start := unique[pivot]
	rest := make([]Point, 0, len(unique)-1)
	for i, p := range unique {
		if i != pivot {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		ai := math.Atan2(rest[i].Z-start.Z, rest[i].X-start.X)
		aj := math.Atan2(rest[j].Z-start.Z, rest[j].X-start.X)
		if ai != aj {
			return ai < aj
		}
		return dist2(start, rest[i]) < dist2(start, rest[j])
	})

	hull := []Point{start, rest[0]}
	for _, p := range rest[1:] {
		for len(hull) > 1 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull
}

func dist2(a, b Point) float64 {
	dx, dz := a.X-b.X, a.Z-b.Z
	return dx*dx + dz*dz
}

// Inside reports whether p lies inside polygon (ray casting)
func Inside(polygon []Point, p Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if (a.Z > p.Z) != (b.Z > p.Z) {
			x := (b.X-a.X)*(p.Z-a.Z)/(b.Z-a.Z) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// DistanceToHull returns 0 for points inside the hull, otherwise the
// distance to its nearest edge or vertex.
func DistanceToHull(hull []Point, p Point) float64 {
	switch len(hull) {
	case 0:
		return math.Inf(1)
	case 1:
		return math.Sqrt(dist2(hull[0], p))
	}
	if Inside(hull, p) {
		return 0
	}
	best := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		best = math.Min(best, segmentDistance(a, b, p))
	}
	return best
}

func segmentDistance(a, b, p Point) float64 {
	l2 := dist2(a, b)
	if l2 == 0 {
		return math.Sqrt(dist2(a, p))
	}
	t := ((p.X-a.X)*(b.X-a.X) + (p.Z-a.Z)*(b.Z-a.Z)) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Sqrt(dist2(p, Point{a.X + t*(b.X-a.X), a.Z + t*(b.Z-a.Z)}))
}

// Centroid returns the vertex average of polygon
func Centroid(polygon []Point) Point {
	var c Point
	for _, p := range polygon {
		c.X += p.X
		c.Z += p.Z
	}
	n := float64(len(polygon))
	return Point{c.X / n, c.Z / n}
}

// bounds returns the axis-aligned bounding box of polygon
func bounds(polygon []Point) (lo, hi Point) {
	lo, hi = polygon[0], polygon[0]
	for _, p := range polygon[1:] {
		lo.X, lo.Z = math.Min(lo.X, p.X), math.Min(lo.Z, p.Z)
		hi.X, hi.Z = math.Max(hi.X, p.X), math.Max(hi.Z, p.Z)
	}
	return lo, hi
}
