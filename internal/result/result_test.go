package result

import (
	"encoding/json"
	"testing"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesar/segmentplanner/internal/access"
	"github.com/dronesar/segmentplanner/internal/cellset"
	"github.com/dronesar/segmentplanner/internal/config"
	"github.com/dronesar/segmentplanner/internal/coverage"
	"github.com/dronesar/segmentplanner/internal/crs"
	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/grid"
	"github.com/dronesar/segmentplanner/internal/polygonbuilder"
	"github.com/dronesar/segmentplanner/internal/raster"
)

func squarePolygon(t *testing.T, x0, y0, side float64) geom.Geometry {
	t.Helper()
	coords := []float64{x0, y0, x0 + side, y0, x0 + side, y0 + side, x0, y0 + side, x0, y0}
	seq := geom.NewSequence(coords, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	require.NoError(t, err)
	poly, err := geom.NewPolygon([]geom.LineString{ls})
	require.NoError(t, err)
	return poly.AsGeometry()
}

func twoSquaresMultiPolygon(t *testing.T, x0, y0, side, gap float64) geom.Geometry {
	t.Helper()
	a := squarePolygon(t, x0, y0, side).MustAsPolygon()
	b := squarePolygon(t, x0+side+gap, y0, side).MustAsPolygon()
	mp, err := geom.NewMultiPolygon([]geom.Polygon{a, b})
	require.NoError(t, err)
	return mp.AsGeometry()
}

func utmResolver(t *testing.T) *crs.Resolver {
	t.Helper()
	polygon := []geomutil.Point{
		{X: -105.0, Y: 39.7}, {X: -104.8, Y: 39.7},
		{X: -104.8, Y: 39.9}, {X: -105.0, Y: 39.9}, {X: -105.0, Y: 39.7},
	}
	r, err := crs.Resolve(polygon)
	require.NoError(t, err)
	return r
}

func TestAssembleSequencesInSelectionOrder(t *testing.T) {
	resolver := utmResolver(t)
	surf := &raster.Surface{
		Width: 10, Height: 10, CellSize: 10,
		OriginX: 500000, OriginY: 4400000,
		Ground: make([]float64, 100), Surface: make([]float64, 100), Target: make([]bool, 100),
	}
	for i := range surf.Ground {
		surf.Ground[i] = 1700
	}

	ringGeom := squarePolygon(t, 500000, 4399900, 50)
	built := &polygonbuilder.Built{
		Rings: [][]geomutil.Point{{{X: 500000, Y: 4399900}, {X: 500050, Y: 4399900}, {X: 500050, Y: 4399950}, {X: 500000, Y: 4399950}, {X: 500000, Y: 4399900}}},
		Geom:  ringGeom,
	}

	selections := []coverage.Selection{
		{
			Candidate: access.Classified{Candidate: grid.Candidate{Index: 0, Point: geomutil.Point{X: 500005, Y: 4399905}}, Mode: config.AccessRoad},
			Cells:     cellset.NewSparse(0),
			GainCells: 10,
		},
	}

	segments, err := Assemble(selections, []*polygonbuilder.Built{built}, surf, resolver, 100)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 1, segments[0].Sequence)
	assert.Equal(t, "road", segments[0].AccessMode)
	assert.InDelta(t, 1700, segments[0].GroundElevM, 1e-9)
	assert.Greater(t, segments[0].AreaSqMeters, 0.0)
}

func TestAssemblePreservesMultiPolygonComponents(t *testing.T) {
	resolver := utmResolver(t)
	surf := &raster.Surface{
		Width: 10, Height: 10, CellSize: 10,
		OriginX: 500000, OriginY: 4400000,
		Ground: make([]float64, 100), Surface: make([]float64, 100), Target: make([]bool, 100),
	}

	multiGeom := twoSquaresMultiPolygon(t, 500000, 4399900, 20, 30)
	built := &polygonbuilder.Built{Geom: multiGeom}

	selections := []coverage.Selection{
		{
			Candidate: access.Classified{Candidate: grid.Candidate{Index: 0, Point: geomutil.Point{X: 500005, Y: 4399905}}, Mode: config.AccessTrail},
			Cells:     cellset.NewSparse(0),
			GainCells: 8,
		},
	}

	segments, err := Assemble(selections, []*polygonbuilder.Built{built}, surf, resolver, 100)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Len(t, segments[0].Polygons, 2, "both disjoint components should survive into the result")
	assert.InDelta(t, segments[0].AreaSqMeters/4046.8564224, segments[0].AreaAcres, 1e-9)
}

func TestAssembleRejectsMismatchedLengths(t *testing.T) {
	resolver := utmResolver(t)
	surf := &raster.Surface{Width: 1, Height: 1, CellSize: 1, Ground: []float64{0}, Surface: []float64{0}, Target: []bool{true}}
	_, err := Assemble([]coverage.Selection{{}}, nil, surf, resolver, 1)
	assert.Error(t, err)
}

func TestToFeatureCollectionProducesValidJSON(t *testing.T) {
	segments := []Segment{
		{
			Sequence: 1,
			Polygons: []Polygon{{
				Ring: []geomutil.Point{{X: -105, Y: 39.7}, {X: -104.9, Y: 39.7}, {X: -104.9, Y: 39.8}, {X: -105, Y: 39.7}},
			}},
			LaunchPoint:  geomutil.Point{X: -104.95, Y: 39.75},
			AreaAcres:    12.5,
			AreaSqMeters: 50000,
			AccessMode:   "off_road",
			GroundElevM:  1800,
			CoverageFrac: 0.4,
		},
	}
	data := ToFeatureCollection(segments, 50, 40, 0.4)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
	features := decoded["features"].([]interface{})
	assert.Len(t, features, 2) // one segment + one summary feature
}
