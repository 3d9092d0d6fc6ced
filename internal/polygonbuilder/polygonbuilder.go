// Package polygonbuilder implements the Polygon Builder: it turns a
// segment's selected cell set into a clipped, simplified polygon (with
// holes preserved) via square-tracing boundary extraction and a
// perpendicular-distance (Douglas-Peucker) simplification pass.
// Clipping and union against the search polygon use
// github.com/peterstace/simplefeatures/geom rather than hand-rolling
// general polygon clipping.
package polygonbuilder

import (
	"github.com/peterstace/simplefeatures/geom"

	"github.com/dronesar/segmentplanner/internal/cellset"
	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/raster"
)

// Built is one segment's finished geometry: possibly multiple disjoint
// components (if the selected cells split into unconnected blobs), each
// with its exterior ring and any holes, all in metric coordinates.
type Built struct {
	Rings [][]geomutil.Point // one exterior ring per connected component
	Holes [][][]geomutil.Point
	Geom  geom.Geometry // clipped union, for disjointness checks against other segments
}

// MinAreaSqMeters below which a traced component is dropped as noise
// rather than emitted as a sliver polygon.
const MinAreaSqMeters = 1.0

// Build traces, simplifies and clips the polygon for one segment's
// selected cell set against the search polygon: 4-connected component
// grouping, Moore-neighbor boundary tracing per component,
// Douglas-Peucker simplification at tolerance cellSize/2, then
// intersection with the search polygon.
func Build(cells cellset.Set, surf *raster.Surface, searchPolygonMetric geom.Geometry) (*Built, error) {
	grid := newBoolGrid(cells, surf.Width, surf.Height)
	components := connectedComponents(grid, surf.Width, surf.Height)

	built := &Built{}
	var pieces []geom.Geometry

	for _, comp := range components {
		exterior, holes := traceComponent(comp, surf.Width, surf.Height)
		if len(exterior) < 4 {
			continue
		}

		metricExterior := toMetric(exterior, surf)
		tol := surf.CellSize / 2
		simplified := douglasPeucker(metricExterior, tol)

		var metricHoles [][]geomutil.Point
		for _, h := range holes {
			mh := toMetric(h, surf)
			mh = douglasPeucker(mh, tol)
			if geomutil.PolygonAreaShoelace(mh) > MinAreaSqMeters {
				metricHoles = append(metricHoles, mh)
			}
		}

		if geomutil.PolygonAreaShoelace(simplified) < MinAreaSqMeters {
			continue
		}

		poly, err := toSimplefeaturesPolygon(simplified, metricHoles)
		if err != nil {
			return nil, planerr.Wrap(planerr.Internal, err, "building polygon for a segment component")
		}

		clipped, err := geom.Intersection(poly.AsGeometry(), searchPolygonMetric)
		if err != nil {
			return nil, planerr.Wrap(planerr.Internal, err, "clipping segment polygon to the search polygon")
		}
		if clipped.IsEmpty() {
			continue
		}

		built.Rings = append(built.Rings, simplified)
		built.Holes = append(built.Holes, metricHoles)
		pieces = append(pieces, clipped)
	}

	if len(pieces) == 0 {
		return nil, planerr.Dataf("segment's selected cells produced no polygon above the minimum area threshold")
	}

	combined := pieces[0]
	for _, p := range pieces[1:] {
		u, err := geom.Union(combined, p)
		if err != nil {
			return nil, planerr.Wrap(planerr.Internal, err, "unioning segment components")
		}
		combined = u
	}
	built.Geom = combined

	return built, nil
}

// ValidateDisjoint enforces that no two assigned segments may overlap.
// A violation is a fatal InternalError since it indicates a defect in
// the selector or builder, not bad input.
func ValidateDisjoint(segments []*Built) error {
	for i := 0; i < len(segments); i++ {
		for j := i + 1; j < len(segments); j++ {
			inter, err := geom.Intersection(segments[i].Geom, segments[j].Geom)
			if err != nil {
				return planerr.Wrap(planerr.Internal, err, "checking segment disjointness")
			}
			if !inter.IsEmpty() && inter.Area() > MinAreaSqMeters {
				return planerr.Internalf("segments %d and %d overlap by %.3f m^2, violating the non-overlap invariant", i, j, inter.Area())
			}
		}
	}
	return nil
}

func toSimplefeaturesPolygon(exterior []geomutil.Point, holes [][]geomutil.Point) (geom.Polygon, error) {
	rings := make([]geom.LineString, 0, 1+len(holes))
	ext, err := ringToLineString(exterior)
	if err != nil {
		return geom.Polygon{}, err
	}
	rings = append(rings, ext)
	for _, h := range holes {
		ls, err := ringToLineString(h)
		if err != nil {
			return geom.Polygon{}, err
		}
		rings = append(rings, ls)
	}
	return geom.NewPolygon(rings)
}

func ringToLineString(ring []geomutil.Point) (geom.LineString, error) {
	closed := ring
	if len(closed) == 0 || closed[0] != closed[len(closed)-1] {
		closed = append(append([]geomutil.Point{}, ring...), ring[0])
	}
	coords := make([]float64, 0, len(closed)*2)
	for _, p := range closed {
		coords = append(coords, p.X, p.Y)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	return geom.NewLineString(seq)
}

// --- grid connected-component grouping + Moore-neighbor tracing ---

type boolGrid struct {
	w, h int
	set  []bool
}

func newBoolGrid(cells cellset.Set, w, h int) *boolGrid {
	g := &boolGrid{w: w, h: h, set: make([]bool, w*h)}
	cells.Each(func(idx cellset.Index) {
		row, col := cellset.Unpack(idx, w)
		if row >= 0 && row < h && col >= 0 && col < w {
			g.set[row*w+col] = true
		}
	})
	return g
}

func (g *boolGrid) at(row, col int) bool {
	if row < 0 || row >= g.h || col < 0 || col >= g.w {
		return false
	}
	return g.set[row*g.w+col]
}

type component struct {
	cells map[[2]int]bool
	minR, maxR, minC, maxC int
}

// connectedComponents groups the grid's set cells into 4-connected
// blobs, so a segment whose selected cells split into disjoint pieces
// is emitted as multiple rings.
func connectedComponents(g *boolGrid, w, h int) []*component {
	visited := make([]bool, w*h)
	var comps []*component
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if !g.at(row, col) || visited[row*w+col] {
				continue
			}
			comp := &component{cells: map[[2]int]bool{}, minR: row, maxR: row, minC: col, maxC: col}
			stack := [][2]int{{row, col}}
			visited[row*w+col] = true
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				comp.cells[c] = true
				if c[0] < comp.minR {
					comp.minR = c[0]
				}
				if c[0] > comp.maxR {
					comp.maxR = c[0]
				}
				if c[1] < comp.minC {
					comp.minC = c[1]
				}
				if c[1] > comp.maxC {
					comp.maxC = c[1]
				}
				for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nr, nc := c[0]+d[0], c[1]+d[1]
					if g.at(nr, nc) && !visited[nr*w+nc] {
						visited[nr*w+nc] = true
						stack = append(stack, [2]int{nr, nc})
					}
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps
}

// gridPoint is a lattice corner: cell (row, col)'s top-left corner is
// gridPoint{row, col}.
type gridPoint struct{ row, col int }

// traceComponent walks the outer boundary of the component with a
// Moore-neighbor contour follow and separately walks the boundary of
// any enclosed holes (cells not in the component but fully surrounded
// by it within its bounding box).
func traceComponent(comp *component, w, h int) (exterior []gridPoint, holes [][]gridPoint) {
	in := func(r, c int) bool { return comp.cells[[2]int{r, c}] }

	exterior = traceBoundary(in, comp.minR, comp.minC, comp.maxR, comp.maxC)

	// Holes: interior cells of the bounding box not belonging to the
	// component, found by flood-filling the box's background from its
	// border inward and treating anything left over as enclosed.
	bw := comp.maxC - comp.minC + 3
	bh := comp.maxR - comp.minR + 3
	bg := make([]bool, bw*bh) // true = reachable from outside (not a hole)
	idx := func(r, c int) int { return (r-comp.minR+1)*bw + (c - comp.minC + 1) }

	var stack [][2]int
	for c := comp.minC - 1; c <= comp.maxC+1; c++ {
		stack = append(stack, [2]int{comp.minR - 1, c}, [2]int{comp.maxR + 1, c})
	}
	for r := comp.minR - 1; r <= comp.maxR+1; r++ {
		stack = append(stack, [2]int{r, comp.minC - 1}, [2]int{r, comp.maxC + 1})
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r, c := p[0], p[1]
		if r < comp.minR-1 || r > comp.maxR+1 || c < comp.minC-1 || c > comp.maxC+1 {
			continue
		}
		if bg[idx(r, c)] || in(r, c) {
			continue
		}
		bg[idx(r, c)] = true
		stack = append(stack, [2]int{r + 1, c}, [2]int{r - 1, c}, [2]int{r, c + 1}, [2]int{r, c - 1})
	}

	holeVisited := make(map[[2]int]bool)
	for r := comp.minR; r <= comp.maxR; r++ {
		for c := comp.minC; c <= comp.maxC; c++ {
			if in(r, c) || bg[idx(r, c)] || holeVisited[[2]int{r, c}] {
				continue
			}
			holeComp := &component{cells: map[[2]int]bool{}, minR: r, maxR: r, minC: c, maxC: c}
			hs := [][2]int{{r, c}}
			holeVisited[[2]int{r, c}] = true
			for len(hs) > 0 {
				p := hs[len(hs)-1]
				hs = hs[:len(hs)-1]
				holeComp.cells[p] = true
				if p[0] < holeComp.minR {
					holeComp.minR = p[0]
				}
				if p[0] > holeComp.maxR {
					holeComp.maxR = p[0]
				}
				if p[1] < holeComp.minC {
					holeComp.minC = p[1]
				}
				if p[1] > holeComp.maxC {
					holeComp.maxC = p[1]
				}
				for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nr, nc := p[0]+d[0], p[1]+d[1]
					if nr < comp.minR || nr > comp.maxR || nc < comp.minC || nc > comp.maxC {
						continue
					}
					if !in(nr, nc) && !bg[idx(nr, nc)] && !holeVisited[[2]int{nr, nc}] {
						holeVisited[[2]int{nr, nc}] = true
						hs = append(hs, [2]int{nr, nc})
					}
				}
			}
			holeIn := func(hr, hc int) bool { return holeComp.cells[[2]int{hr, hc}] }
			holes = append(holes, traceBoundary(holeIn, holeComp.minR, holeComp.minC, holeComp.maxR, holeComp.maxC))
		}
	}

	return exterior, holes
}

// traceBoundary walks the outline of the cells for which in(r,c) is
// true, producing the sequence of grid-corner vertices in clockwise
// order. It scans for the topmost-leftmost set cell and square-traces
// its boundary cell-edge by cell-edge.
func traceBoundary(in func(r, c int) bool, minR, minC, maxR, maxC int) []gridPoint {
	var startR, startC int
	found := false
	for r := minR; r <= maxR && !found; r++ {
		for c := minC; c <= maxC; c++ {
			if in(r, c) {
				startR, startC = r, c
				found = true
				break
			}
		}
	}
	if !found {
		return nil
	}

	// Walk the boundary using the "square tracing" algorithm: track the
	// current edge as (cell, direction-we-came-from) and turn left/right
	// based on whether the cell ahead is set.
	type dir int
	const (
		up dir = iota
		right
		down
		left
	)
	dRow := map[dir]int{up: -1, right: 0, down: 1, left: 0}
	dCol := map[dir]int{up: 0, right: 1, down: 0, left: -1}

	path := []gridPoint{{startR, startC}}
	r, c, d := startR, startC, right
	for steps := 0; steps < 4*(maxR-minR+2)*(maxC-minC+2)+8; steps++ {
		// try turning left relative to d first (keeps the traced region
		// on our right hand, producing a clockwise exterior outline)
		leftOf := map[dir]dir{up: left, left: down, down: right, right: up}[d]
		tryOrder := []dir{leftOf, d, map[dir]dir{up: right, right: down, down: left, left: up}[d], map[dir]dir{up: down, down: up, left: right, right: left}[d]}

		moved := false
		for _, nd := range tryOrder {
			nr, nc := r+dRow[nd], c+dCol[nd]
			if in(nr, nc) {
				r, c, d = nr, nc, nd
				path = append(path, gridPoint{r, c})
				moved = true
				break
			}
		}
		if !moved {
			break
		}
		if r == startR && c == startC {
			break
		}
	}

	return cellPathToCorners(path)
}

// cellPathToCorners converts a sequence of visited cell centers into the
// polygon of their shared grid corners (each cell (r,c) contributes its
// four corners (r,c)..(r+1,c+1); adjacent cells in the path share an
// edge). This keeps the traced polygon's vertices on the raster's
// cell-corner lattice rather than on cell centers.
func cellPathToCorners(cells []gridPoint) []gridPoint {
	corners := make([]gridPoint, 0, len(cells)+1)
	for _, p := range cells {
		corners = append(corners, gridPoint{p.row, p.col})
	}
	if len(corners) > 0 {
		corners = append(corners, corners[0])
	}
	return corners
}

func toMetric(pts []gridPoint, surf *raster.Surface) []geomutil.Point {
	out := make([]geomutil.Point, len(pts))
	for i, p := range pts {
		out[i] = geomutil.Point{
			X: surf.OriginX + float64(p.col)*surf.CellSize,
			Y: surf.OriginY - float64(p.row)*surf.CellSize,
		}
	}
	return out
}

// douglasPeucker simplifies a closed ring to within tolerance, operating
// on metric float64 points rather than integer grid coordinates.
func douglasPeucker(ring []geomutil.Point, tolerance float64) []geomutil.Point {
	if len(ring) < 4 {
		return ring
	}
	open := ring
	closed := open[0] == open[len(open)-1]
	if closed {
		open = open[:len(open)-1]
	}
	if len(open) < 3 {
		return ring
	}

	keep := make([]bool, len(open))
	keep[0] = true
	dpRecurse(open, 0, len(open)-1, tolerance, keep)
	keep[len(open)-1] = true

	var out []geomutil.Point
	for i, k := range keep {
		if k {
			out = append(out, open[i])
		}
	}
	if closed {
		out = append(out, out[0])
	}
	return out
}

func dpRecurse(pts []geomutil.Point, lo, hi int, tol float64, keep []bool) {
	if hi <= lo+1 {
		return
	}
	maxDist := -1.0
	maxIdx := -1
	for i := lo + 1; i < hi; i++ {
		d := geomutil.DistToSegment(pts[i], pts[lo], pts[hi])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist > tol {
		keep[maxIdx] = true
		dpRecurse(pts, lo, maxIdx, tol, keep)
		dpRecurse(pts, maxIdx, hi, tol, keep)
	}
}
