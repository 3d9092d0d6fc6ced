// Package grid implements the Grid Generator: an axis-aligned lattice of
// candidate launch points over the search polygon's bounding rectangle,
// retained only where the candidate's cell centroid falls inside the
// polygon. Candidates are produced in a fixed row-major order for
// determinism: northing descending, then easting ascending.
package grid

import (
	"sort"

	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/raster"
)

// Candidate is one lattice point retained as a launch-site candidate.
type Candidate struct {
	Index    int // 0-based generation order, stable across runs
	Row, Col int // lattice row/col within the bounding rectangle
	Point    geomutil.Point
}

// Generate lays a grid_spacing_m lattice over the polygon's metric
// bounding rectangle and keeps the lattice points that lie inside the
// polygon (GenerateOverSurface additionally requires each point's cell to
// be a target cell). When maxCandidates > 0 and more points survive, it downsamples
// deterministically by striding the row-major sequence rather than
// truncating, so the retained candidates stay spread across the whole
// polygon instead of clustering at one corner.
func Generate(polygonMetric []geomutil.Point, spacing float64, maxCandidates int) ([]Candidate, error) {
	if spacing <= 0 {
		return nil, planerr.Configf("grid_spacing_m must be > 0, got %v", spacing)
	}
	open := polygonMetric
	if len(open) > 1 && open[0] == open[len(open)-1] {
		open = open[:len(open)-1]
	}
	if len(open) < 3 {
		return nil, planerr.Configf("search polygon needs at least 3 distinct vertices")
	}

	bounds := geomutil.BoundsOfRing(open)
	cols := int(bounds.Width()/spacing) + 1
	rows := int(bounds.Height()/spacing) + 1
	if cols <= 0 || rows <= 0 {
		return nil, planerr.Dataf("degenerate candidate lattice (%dx%d rows/cols)", rows, cols)
	}

	var all []Candidate
	// Row 0 is the northernmost row (northing descending).
	for row := 0; row < rows; row++ {
		northing := bounds.MaxY - float64(row)*spacing
		for col := 0; col < cols; col++ {
			easting := bounds.MinX + float64(col)*spacing
			p := geomutil.Point{X: easting, Y: northing}
			if geomutil.PointInRing(p, open) {
				all = append(all, Candidate{Row: row, Col: col, Point: p})
			}
		}
	}
	if len(all) == 0 {
		return nil, planerr.Dataf("grid_spacing_m %.3f produced no candidate launch points inside the search polygon", spacing)
	}

	if maxCandidates > 0 && len(all) > maxCandidates {
		all = downsample(all, maxCandidates)
	}

	for i := range all {
		all[i].Index = i
	}
	return all, nil
}

// downsample picks an evenly-spaced subsequence of n candidates from the
// row-major-ordered input, preserving relative order.
func downsample(in []Candidate, n int) []Candidate {
	if n >= len(in) {
		return in
	}
	out := make([]Candidate, 0, n)
	step := float64(len(in)) / float64(n)
	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		idx := int(float64(i) * step)
		if idx >= len(in) {
			idx = len(in) - 1
		}
		for seen[idx] && idx < len(in)-1 {
			idx++
		}
		seen[idx] = true
		out = append(out, in[idx])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// GenerateOverSurface is a convenience wrapper used by the orchestrator:
// it generates candidates over the polygon but additionally requires each
// candidate's cell to be a target cell of the prepared surface, so a
// candidate never launches from a cell the Raster Preparer excluded.
func GenerateOverSurface(polygonMetric []geomutil.Point, spacing float64, maxCandidates int, surf *raster.Surface) ([]Candidate, error) {
	cands, err := Generate(polygonMetric, spacing, 0)
	if err != nil {
		return nil, err
	}
	filtered := cands[:0]
	for _, c := range cands {
		row, col := surf.CellOf(c.Point)
		if surf.InBounds(row, col) && surf.Target[surf.Idx(row, col)] {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil, planerr.Dataf("no candidate launch points fell within the prepared surface's target mask")
	}
	if maxCandidates > 0 && len(filtered) > maxCandidates {
		filtered = downsample(filtered, maxCandidates)
	}
	for i := range filtered {
		filtered[i].Index = i
	}
	return filtered, nil
}
