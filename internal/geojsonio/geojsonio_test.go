package geojsonio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesar/segmentplanner/internal/geomutil"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.geojson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPolygonFromBareGeometry(t *testing.T) {
	path := writeFile(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	ring, err := LoadPolygon(path)
	require.NoError(t, err)
	require.Len(t, ring, 5)
	assert.Equal(t, geomutil.Point{X: 0, Y: 0}, ring[0])
}

func TestLoadPolygonFromFeatureCollection(t *testing.T) {
	path := writeFile(t, `{
		"type":"FeatureCollection",
		"features":[
			{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}
		]
	}`)
	ring, err := LoadPolygon(path)
	require.NoError(t, err)
	require.Len(t, ring, 5)
}

func TestLoadPolygonRejectsNonPolygon(t *testing.T) {
	path := writeFile(t, `{"type":"LineString","coordinates":[[0,0],[1,1]]}`)
	_, err := LoadPolygon(path)
	assert.Error(t, err)
}

func TestLoadLinesEmptyPathReturnsNil(t *testing.T) {
	lines, err := LoadLines("")
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestLoadLinesFromFeatureCollection(t *testing.T) {
	path := writeFile(t, `{
		"type":"FeatureCollection",
		"features":[
			{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}},
			{"type":"Feature","properties":{},"geometry":{"type":"MultiLineString","coordinates":[[[2,2],[3,3]],[[4,4],[5,5]]]}}
		]
	}`)
	lines, err := LoadLines(path)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestLoadLinesFromBareGeometry(t *testing.T) {
	path := writeFile(t, `{"type":"LineString","coordinates":[[0,0],[1,1],[2,2]]}`)
	lines, err := LoadLines(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0], 3)
}

func TestBuildFeatureCollectionIncludesSummaryFeature(t *testing.T) {
	segments := []SegmentFeature{
		{
			Sequence: 1,
			Polygons: []SegmentPolygon{{
				Ring: []geomutil.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}},
			}},
			LaunchPoint:  geomutil.Point{X: 0.5, Y: 0.5},
			AreaAcres:    1.2,
			AreaSqMeters: 5000,
			AccessMode:   "road",
			GroundElevM:  1500,
			CoverageFrac: 0.3,
		},
	}
	fc := BuildFeatureCollection(segments, 100, 80, 0.75)
	require.Len(t, fc.Features, 2)

	buf, err := fc.MarshalJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])

	last := fc.Features[len(fc.Features)-1]
	assert.Equal(t, "run_summary", last.Properties["feature_type"])
	assert.EqualValues(t, 1, last.Properties["segment_count"])
	assert.EqualValues(t, 100, last.Properties["candidates_generated"])
}

func TestBuildFeatureCollectionSegmentProperties(t *testing.T) {
	segments := []SegmentFeature{
		{
			Sequence: 1,
			Polygons: []SegmentPolygon{{
				Ring: []geomutil.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}},
			}},
			AccessMode: "trail",
		},
	}
	fc := BuildFeatureCollection(segments, 1, 1, 1.0)
	assert.Equal(t, "trail", fc.Features[0].Properties["access_type"])
	assert.EqualValues(t, 1, fc.Features[0].Properties["sequence"])
}

func TestBuildFeatureCollectionMultiPolygonSegment(t *testing.T) {
	segments := []SegmentFeature{
		{
			Sequence: 1,
			Polygons: []SegmentPolygon{
				{Ring: []geomutil.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}},
				{Ring: []geomutil.Point{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}, {X: 5, Y: 5}}},
			},
			AccessMode: "road",
		},
	}
	fc := BuildFeatureCollection(segments, 1, 1, 1.0)
	assert.Equal(t, geojson.GeometryMultiPolygon, fc.Features[0].Geometry.Type)
}
