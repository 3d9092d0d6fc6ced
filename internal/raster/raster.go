// Package raster implements the Raster Preparer: it turns a DEM (and
// optional vegetation raster) into the surface raster over the metric
// frame, with ground and combined-surface elevations and a target-cell
// mask. The pipeline stage itself is pure Go arithmetic over flat
// float64 slices — a flat, immutable-once-built grid passed by
// reference to every later stage.
package raster

import (
	"github.com/dronesar/segmentplanner/internal/crs"
	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/rasterio"
)

// Surface is the surface raster: a rectangular grid over the metric
// frame with uniform cell size, carrying ground and combined surface
// elevation per cell plus the target mask.
type Surface struct {
	Width, Height int
	CellSize      float64
	OriginX       float64 // easting of the top-left corner
	OriginY       float64 // northing of the top-left corner

	Ground  []float64 // row-major, length Width*Height
	Surface []float64 // ground + vegetation_height

	// Target marks cells strictly inside the search polygon;
	// non-target cells remain usable as occluders but aren't
	// assignable to a segment.
	Target []bool
}

// Idx flattens (row, col) into an index into Ground/Surface/Target.
func (s *Surface) Idx(row, col int) int { return row*s.Width + col }

// InBounds reports whether (row, col) is a valid cell index.
func (s *Surface) InBounds(row, col int) bool {
	return row >= 0 && row < s.Height && col >= 0 && col < s.Width
}

// CellCenter returns the metric coordinates of the center of (row, col).
func (s *Surface) CellCenter(row, col int) geomutil.Point {
	return geomutil.Point{
		X: s.OriginX + (float64(col)+0.5)*s.CellSize,
		Y: s.OriginY - (float64(row)+0.5)*s.CellSize,
	}
}

// CellOf returns the (row, col) whose cell contains the metric point p.
func (s *Surface) CellOf(p geomutil.Point) (row, col int) {
	col = int((p.X - s.OriginX) / s.CellSize)
	row = int((s.OriginY - p.Y) / s.CellSize)
	return
}

// Prepare reprojects and clips the DEM to the search polygon's bounding
// rectangle inflated by maxVLOSMeters, resamples vegetation onto the
// same grid, sums to a surface elevation, and rasterizes the target
// mask.
func Prepare(demPath, vegPath string, polygonWGS84 []geomutil.Point, resolver *crs.Resolver, maxVLOSMeters float64) (*Surface, error) {
	metricRing := make([]geomutil.Point, len(polygonWGS84))
	for i, p := range polygonWGS84 {
		metricRing[i] = resolver.Forward(p)
	}
	bounds := geomutil.BoundsOfRing(metricRing).Inflate(maxVLOSMeters)

	_, _, _, _, cellSize, srcWKT, err := rasterio.Bounds(demPath)
	if err != nil {
		return nil, err
	}
	_ = srcWKT // native CRS is only needed by GDAL internally during warp
	if cellSize <= 0 {
		return nil, planerr.Dataf("DEM %q has a non-positive native pixel size (%.6f)", demPath, cellSize)
	}

	width := int(bounds.Width()/cellSize) + 1
	height := int(bounds.Height()/cellSize) + 1
	if width <= 0 || height <= 0 {
		return nil, planerr.Dataf("degenerate raster frame (%dx%d) for polygon bounds", width, height)
	}

	dstWKT := epsgToWKTPlaceholder(resolver)
	geot := [6]float64{bounds.MinX, cellSize, 0, bounds.MaxY, 0, -cellSize}

	demGrid, err := rasterio.OpenAndWarp(demPath, dstWKT, geot, width, height, "bilinear")
	if err != nil {
		return nil, err
	}

	surf := &Surface{
		Width: width, Height: height,
		CellSize: cellSize,
		OriginX:  geot[0], OriginY: geot[3],
		Ground:  make([]float64, width*height),
		Surface: make([]float64, width*height),
		Target:  make([]bool, width*height),
	}

	for i, v := range demGrid.Values {
		if demGrid.HasNoData && float64(v) == demGrid.NoData {
			return nil, planerr.Dataf("DEM has no elevation data within the clipped search frame at cell %d", i)
		}
		surf.Ground[i] = float64(v)
		surf.Surface[i] = float64(v)
	}

	if vegPath != "" {
		vegGrid, err := rasterio.OpenAndWarp(vegPath, dstWKT, geot, width, height, "near")
		if err != nil {
			return nil, err
		}
		for i, v := range vegGrid.Values {
			veg := float64(v)
			if vegGrid.HasNoData && float64(v) == vegGrid.NoData {
				veg = 0
			}
			surf.Surface[i] += veg
		}
	}

	openRing := metricRing
	if len(openRing) > 1 && openRing[0] == openRing[len(openRing)-1] {
		openRing = openRing[:len(openRing)-1]
	}
	nTarget := 0
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			center := surf.CellCenter(row, col)
			if geomutil.PointInRing(center, openRing) {
				surf.Target[surf.Idx(row, col)] = true
				nTarget++
			}
		}
	}
	if nTarget == 0 {
		return nil, planerr.Dataf("search polygon does not rasterize to any target cell at cell size %.3f", cellSize)
	}

	return surf, nil
}

// TargetCount returns the number of target cells.
func (s *Surface) TargetCount() int {
	n := 0
	for _, t := range s.Target {
		if t {
			n++
		}
	}
	return n
}

// epsgToWKTPlaceholder returns the resolver's "EPSG:<code>" string as the
// GDAL warp target SRS; it renders no WKT. GDAL accepts "EPSG:<code>"
// directly as a -t_srs value; this indirection exists so callers can
// swap in a full WKT (e.g. a custom polar-stereographic definition)
// without changing Prepare's signature.
func epsgToWKTPlaceholder(r *crs.Resolver) string {
	return r.EPSGName()
}
