// Package geojsonio is the GeoJSON adapter: it loads the WGS84 search
// polygon and optional road/trail vector inputs, and assembles the
// output FeatureCollection the Result Assembler produces. Like
// internal/rasterio for rasters, this package is the only place that
// imports github.com/paulmach/go.geojson; every other package works in
// plain geomutil.Point slices.
package geojsonio

import (
	"os"

	"github.com/paulmach/go.geojson"

	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
)

// LoadPolygon reads a GeoJSON file containing a Polygon geometry, a
// Polygon Feature, or a FeatureCollection (from which the first Polygon
// feature is taken; any others are ignored) and returns its exterior
// ring as WGS84 lon/lat points.
func LoadPolygon(path string) ([]geomutil.Point, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, planerr.Wrap(planerr.Config, err, "reading search polygon %q", path)
	}

	geom, err := extractSingleGeometry(buf, path)
	if err != nil {
		return nil, err
	}
	if geom.Type != geojson.GeometryPolygon {
		return nil, planerr.Configf("search polygon %q: expected Polygon geometry, got %s", path, geom.Type)
	}
	if len(geom.Polygon) == 0 {
		return nil, planerr.Configf("search polygon %q has no rings", path)
	}
	return ringToPoints(geom.Polygon[0]), nil
}

// LoadLines reads a GeoJSON file of LineString and/or MultiLineString
// features (roads or trails) and returns each line as a WGS84 polyline.
func LoadLines(path string) ([][]geomutil.Point, error) {
	if path == "" {
		return nil, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, planerr.Wrap(planerr.Config, err, "reading vector input %q", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(buf)
	if err == nil && fc != nil {
		var lines [][]geomutil.Point
		for _, f := range fc.Features {
			lines = append(lines, linesFromGeometry(f.Geometry)...)
		}
		return lines, nil
	}

	geom, gerr := geojson.UnmarshalGeometry(buf)
	if gerr != nil {
		return nil, planerr.Wrap(planerr.Config, gerr, "parsing vector input %q as GeoJSON", path)
	}
	return linesFromGeometry(geom), nil
}

func linesFromGeometry(geom *geojson.Geometry) [][]geomutil.Point {
	if geom == nil {
		return nil
	}
	switch geom.Type {
	case geojson.GeometryLineString:
		return [][]geomutil.Point{lineToPoints(geom.LineString)}
	case geojson.GeometryMultiLineString:
		out := make([][]geomutil.Point, 0, len(geom.MultiLineString))
		for _, ls := range geom.MultiLineString {
			out = append(out, lineToPoints(ls))
		}
		return out
	default:
		return nil
	}
}

func extractSingleGeometry(buf []byte, path string) (*geojson.Geometry, error) {
	fc, err := geojson.UnmarshalFeatureCollection(buf)
	if err == nil && fc != nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			if f.Geometry != nil && f.Geometry.Type == geojson.GeometryPolygon {
				return f.Geometry, nil
			}
		}
		return nil, planerr.Configf("%q: FeatureCollection has no Polygon feature", path)
	}

	feature, ferr := geojson.UnmarshalFeature(buf)
	if ferr == nil && feature != nil && feature.Geometry != nil {
		return feature.Geometry, nil
	}

	geom, gerr := geojson.UnmarshalGeometry(buf)
	if gerr != nil {
		return nil, planerr.Wrap(planerr.Config, gerr, "parsing %q as GeoJSON", path)
	}
	return geom, nil
}

func ringToPoints(ring [][]float64) []geomutil.Point {
	out := make([]geomutil.Point, len(ring))
	for i, c := range ring {
		out[i] = geomutil.Point{X: c[0], Y: c[1]}
	}
	return out
}

func lineToPoints(line [][]float64) []geomutil.Point {
	out := make([]geomutil.Point, len(line))
	for i, c := range line {
		out[i] = geomutil.Point{X: c[0], Y: c[1]}
	}
	return out
}

// polygonCoords renders one SegmentPolygon as GeoJSON polygon
// coordinates: the exterior ring followed by each hole ring.
func polygonCoords(p SegmentPolygon) [][][]float64 {
	rings := make([][][]float64, 0, 1+len(p.Holes))
	rings = append(rings, pointsToCoords(p.Ring))
	for _, h := range p.Holes {
		rings = append(rings, pointsToCoords(h))
	}
	return rings
}

func pointsToCoords(ring []geomutil.Point) [][]float64 {
	coords := make([][]float64, len(ring))
	for i, p := range ring {
		coords[i] = []float64{p.X, p.Y}
	}
	return coords
}

// SegmentPolygon is one component of a segment's geometry: an exterior
// ring plus any interior holes, both WGS84 and closed.
type SegmentPolygon struct {
	Ring  []geomutil.Point
	Holes [][]geomutil.Point
}

// SegmentFeature is the per-segment record the Result Assembler builds
// before encoding: sequence, geometry, area, access, elevation, launch
// point. A segment whose selected cells (or whose clip against the
// search polygon) split into more than one disjoint piece carries more
// than one Polygons entry and is encoded as a GeoJSON MultiPolygon.
type SegmentFeature struct {
	Sequence     int
	Polygons     []SegmentPolygon
	LaunchPoint  geomutil.Point // WGS84
	AreaAcres    float64
	AreaSqMeters float64
	AccessMode   string
	GroundElevM  float64
	CoverageFrac float64
}

// BuildFeatureCollection assembles the output artifact: one Polygon or
// MultiPolygon feature per segment plus a trailing summary feature
// carrying run-level diagnostics. Properties match the downstream KML
// serialization contract: area_acres, area_m2, access_type,
// launch_point {lon, lat}, ground_elev_m.
func BuildFeatureCollection(segments []SegmentFeature, candidatesGenerated, candidatesRetained int, totalCoverageFrac float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, seg := range segments {
		polys := make([][][][]float64, len(seg.Polygons))
		for i, p := range seg.Polygons {
			polys[i] = polygonCoords(p)
		}

		var f *geojson.Feature
		if len(polys) == 1 {
			f = geojson.NewPolygonFeature(polys[0])
		} else {
			f = geojson.NewMultiPolygonFeature(polys...)
		}
		f.SetProperty("sequence", seg.Sequence)
		f.SetProperty("launch_point", map[string]float64{"lon": seg.LaunchPoint.X, "lat": seg.LaunchPoint.Y})
		f.SetProperty("area_acres", seg.AreaAcres)
		f.SetProperty("area_m2", seg.AreaSqMeters)
		f.SetProperty("access_type", seg.AccessMode)
		f.SetProperty("ground_elev_m", seg.GroundElevM)
		f.SetProperty("coverage_fraction", seg.CoverageFrac)
		fc.AddFeature(f)
	}

	// Run-level diagnostics ride along as a zero-geometry point feature
	// rather than a nonstandard top-level member, so the collection stays
	// a plain GeoJSON FeatureCollection any reader can parse.
	summary := geojson.NewPointFeature([]float64{0, 0})
	summary.SetProperty("feature_type", "run_summary")
	summary.SetProperty("segment_count", len(segments))
	summary.SetProperty("candidates_generated", candidatesGenerated)
	summary.SetProperty("candidates_retained", candidatesRetained)
	summary.SetProperty("coverage_fraction", totalCoverageFrac)
	fc.AddFeature(summary)

	return fc
}
