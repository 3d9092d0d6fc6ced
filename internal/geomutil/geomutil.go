// Package geomutil holds the small hand-rolled planar geometry helpers
// used across the pipeline: point-in-polygon, point-to-segment distance,
// bounding rectangles and centroids, at float64 precision since the
// domain works in geographic/metric coordinates rather than mesh-local
// units.
package geomutil

import "math"

// Point is a planar coordinate. Used for both lon/lat (degrees) and
// metric easting/northing (meters) depending on caller context.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned bounding rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Inflate returns r expanded by d in every direction.
func (r Rect) Inflate(d float64) Rect {
	return Rect{r.MinX - d, r.MinY - d, r.MaxX + d, r.MaxY + d}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// BoundsOfRing returns the bounding rectangle of a closed ring.
func BoundsOfRing(ring []Point) Rect {
	if len(ring) == 0 {
		return Rect{}
	}
	r := Rect{MinX: ring[0].X, MinY: ring[0].Y, MaxX: ring[0].X, MaxY: ring[0].Y}
	for _, p := range ring[1:] {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

// Centroid returns the arithmetic mean of a ring's vertices. Good enough
// for the CRS Resolver's zone-selection purpose; it need not be the area
// centroid.
func Centroid(ring []Point) Point {
	var sx, sy float64
	n := len(ring)
	if n == 0 {
		return Point{}
	}
	for _, p := range ring {
		sx += p.X
		sy += p.Y
	}
	return Point{sx / float64(n), sy / float64(n)}
}

// PointInRing reports whether p lies inside the closed ring using the
// standard even-odd ray-casting test. Points exactly on an edge may
// return either value; callers needing edge-inclusive behavior should
// pre-buffer.
func PointInRing(p Point, ring []Point) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xIntersect := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DistToSegment returns the shortest distance from p to the segment ab.
func DistToSegment(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	wx, wy := p.X-a.X, p.Y-a.Y

	segLenSq := vx*vx + vy*vy
	if segLenSq < 1e-12 {
		return Dist(p, a)
	}

	t := (wx*vx + wy*vy) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := Point{a.X + t*vx, a.Y + t*vy}
	return Dist(p, proj)
}

// DistToPolyline returns the shortest distance from p to any segment of
// an open polyline.
func DistToPolyline(p Point, line []Point) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		d := DistToSegment(p, line[i], line[i+1])
		if d < best {
			best = d
		}
	}
	return best
}

// RingIsClosed reports whether the first and last vertex coincide within
// tolerance, as required of the search polygon's exterior ring.
func RingIsClosed(ring []Point, tol float64) bool {
	if len(ring) < 2 {
		return false
	}
	return Dist(ring[0], ring[len(ring)-1]) <= tol
}

// SelfIntersects reports whether a closed ring has any pair of
// non-adjacent edges that cross. O(n^2), adequate for search polygons
// with at most a few hundred vertices.
func SelfIntersects(ring []Point) bool {
	n := len(ring)
	if n < 4 {
		return false
	}
	segs := n
	if ring[0] != ring[n-1] {
		segs = n // open ring treated as implicitly closed by caller
	} else {
		segs = n - 1
	}
	for i := 0; i < segs; i++ {
		a1, a2 := ring[i], ring[(i+1)%segs]
		for j := i + 1; j < segs; j++ {
			if j == i+1 || (j+1)%segs == i {
				continue
			}
			b1, b2 := ring[j], ring[(j+1)%segs]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func orientation(a, b, c Point) int {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > 1e-12:
		return 1
	case v < -1e-12:
		return -1
	default:
		return 0
	}
}

func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func segmentsIntersect(a1, a2, b1, b2 Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if o2 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	if o3 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if o4 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	return false
}

// PolygonAreaShoelace returns the unsigned planar area of a closed ring
// (meters^2 when ring is in metric coordinates).
func PolygonAreaShoelace(ring []Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return math.Abs(sum) / 2
}
