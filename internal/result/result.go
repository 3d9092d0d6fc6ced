// Package result implements the Result Assembler: it inverse-projects
// each selected segment's geometry and launch point back to WGS84,
// computes area and coverage diagnostics, and assembles the GeoJSON
// output artifact via internal/geojsonio.
package result

import (
	"github.com/peterstace/simplefeatures/geom"

	"github.com/dronesar/segmentplanner/internal/coverage"
	"github.com/dronesar/segmentplanner/internal/crs"
	"github.com/dronesar/segmentplanner/internal/geojsonio"
	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/polygonbuilder"
	"github.com/dronesar/segmentplanner/internal/raster"
)

// Polygon is one component of a segment's geometry: an exterior ring
// plus any interior holes, both WGS84 and closed.
type Polygon struct {
	Ring  []geomutil.Point
	Holes [][]geomutil.Point
}

// Segment is one finished, WGS84-projected output segment: sequence,
// geometry, launch point, area, access, elevation, coverage. A segment
// whose clipped geometry is more than one disjoint piece (selected
// cells split into unconnected components, or a concave search polygon
// splits a component on clip) carries more than one Polygons entry.
type Segment struct {
	Sequence     int
	Polygons     []Polygon
	LaunchPoint  geomutil.Point // WGS84
	AreaAcres    float64
	AreaSqMeters float64
	AccessMode   string
	GroundElevM  float64
	CoverageFrac float64
}

// Assemble inverse-projects every selection's built, clipped geometry
// and launch point to WGS84 and sequences segments 1..N in selection
// order, reflecting the order they were picked. The output geometry is
// read from b.Geom, the already clipped and unioned polygon/multipolygon,
// rather than the pre-clip traced rings, so every disjoint piece and
// every hole the Polygon Builder produced survives into the result.
func Assemble(selections []coverage.Selection, built []*polygonbuilder.Built, surf *raster.Surface, resolver *crs.Resolver, totalTargetCells int) ([]Segment, error) {
	if len(selections) != len(built) {
		return nil, planerr.Internalf("selection count %d does not match built-polygon count %d", len(selections), len(built))
	}

	segments := make([]Segment, 0, len(selections))
	for i, sel := range selections {
		b := built[i]

		polys := polygonsFromGeom(b.Geom)
		if len(polys) == 0 {
			return nil, planerr.Internalf("segment %d has no traced polygon", i+1)
		}
		wgsPolys := make([]Polygon, len(polys))
		for j, p := range polys {
			wgsPolys[j] = Polygon{Ring: inverseRing(p.Ring, resolver)}
			for _, h := range p.Holes {
				wgsPolys[j].Holes = append(wgsPolys[j].Holes, inverseRing(h, resolver))
			}
		}

		launchRow, launchCol := surf.CellOf(sel.Candidate.Point)
		groundElev := 0.0
		if surf.InBounds(launchRow, launchCol) {
			groundElev = surf.Ground[surf.Idx(launchRow, launchCol)]
		}

		areaSqM := b.Geom.Area()
		coverageFrac := coverage.CoverageFraction([]coverage.Selection{sel}, totalTargetCells, surf.Width*surf.Height)

		segments = append(segments, Segment{
			Sequence:     i + 1,
			Polygons:     wgsPolys,
			LaunchPoint:  resolver.Inverse(sel.Candidate.Point),
			AreaAcres:    areaSqM / 4046.8564224,
			AreaSqMeters: areaSqM,
			AccessMode:   string(sel.Candidate.Mode),
			GroundElevM:  groundElev,
			CoverageFrac: coverageFrac,
		})
	}

	return segments, nil
}

// ToFeatureCollection hands the assembled segments to geojsonio for
// encoding, with the run-level diagnostics (candidates
// generated/retained, overall coverage fraction).
func ToFeatureCollection(segments []Segment, candidatesGenerated, candidatesRetained int, totalCoverageFrac float64) []byte {
	recs := make([]geojsonio.SegmentFeature, len(segments))
	for i, s := range segments {
		polys := make([]geojsonio.SegmentPolygon, len(s.Polygons))
		for j, p := range s.Polygons {
			polys[j] = geojsonio.SegmentPolygon{Ring: p.Ring, Holes: p.Holes}
		}
		recs[i] = geojsonio.SegmentFeature{
			Sequence:     s.Sequence,
			Polygons:     polys,
			LaunchPoint:  s.LaunchPoint,
			AreaAcres:    s.AreaAcres,
			AreaSqMeters: s.AreaSqMeters,
			AccessMode:   s.AccessMode,
			GroundElevM:  s.GroundElevM,
			CoverageFrac: s.CoverageFrac,
		}
	}
	fc := geojsonio.BuildFeatureCollection(recs, candidatesGenerated, candidatesRetained, totalCoverageFrac)
	data, err := fc.MarshalJSON()
	if err != nil {
		// MarshalJSON only fails on cyclic or unsupported property
		// values, neither of which SegmentFeature can produce.
		panic(planerr.Internalf("marshalling result feature collection: %v", err))
	}
	return data
}

func inverseRing(ringMetric []geomutil.Point, resolver *crs.Resolver) []geomutil.Point {
	out := make([]geomutil.Point, len(ringMetric))
	for i, p := range ringMetric {
		out[i] = resolver.Inverse(p)
	}
	return out
}

// geomPolygon is one polygon's exterior ring plus holes, in metric
// coordinates, extracted from a simplefeatures geometry.
type geomPolygon struct {
	Ring  []geomutil.Point
	Holes [][]geomutil.Point
}

// polygonsFromGeom extracts every component polygon (and its holes)
// from a simplefeatures Polygon or MultiPolygon, preserving every
// disjoint piece rather than collapsing to one.
func polygonsFromGeom(g geom.Geometry) []geomPolygon {
	switch g.Type() {
	case geom.TypePolygon:
		return []geomPolygon{extractPolygon(g.MustAsPolygon())}
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		out := make([]geomPolygon, 0, mp.NumPolygons())
		for i := 0; i < mp.NumPolygons(); i++ {
			out = append(out, extractPolygon(mp.PolygonN(i)))
		}
		return out
	default:
		return nil
	}
}

func extractPolygon(poly geom.Polygon) geomPolygon {
	out := geomPolygon{Ring: coordsOf(poly.ExteriorRing())}
	for i := 0; i < poly.NumInteriorRings(); i++ {
		out.Holes = append(out.Holes, coordsOf(poly.InteriorRingN(i)))
	}
	return out
}

func coordsOf(ls geom.LineString) []geomutil.Point {
	seq := ls.Coordinates()
	n := seq.Length()
	out := make([]geomutil.Point, n)
	for i := 0; i < n; i++ {
		c := seq.Get(i)
		out[i] = geomutil.Point{X: c.X, Y: c.Y}
	}
	return out
}
