package geomutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() []Point {
	return []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
}

func TestPointInRing(t *testing.T) {
	ring := square()
	assert.True(t, PointInRing(Point{5, 5}, ring))
	assert.False(t, PointInRing(Point{15, 5}, ring))
	assert.False(t, PointInRing(Point{-1, -1}, ring))
}

func TestBoundsOfRing(t *testing.T) {
	r := BoundsOfRing(square())
	assert.Equal(t, Rect{0, 0, 10, 10}, r)
	assert.Equal(t, 10.0, r.Width())
	assert.Equal(t, 10.0, r.Height())
}

func TestRectInflate(t *testing.T) {
	r := Rect{0, 0, 10, 10}.Inflate(5)
	assert.Equal(t, Rect{-5, -5, 15, 15}, r)
}

func TestCentroid(t *testing.T) {
	c := Centroid([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	assert.InDelta(t, 5.0, c.X, 1e-9)
	assert.InDelta(t, 5.0, c.Y, 1e-9)
}

func TestDistToSegment(t *testing.T) {
	a, b := Point{0, 0}, Point{10, 0}
	assert.InDelta(t, 5.0, DistToSegment(Point{5, 5}, a, b), 1e-9)
	// beyond endpoint clamps to nearest endpoint
	assert.InDelta(t, Dist(Point{20, 0}, b), DistToSegment(Point{20, 0}, a, b), 1e-9)
}

func TestDistToPolyline(t *testing.T) {
	line := []Point{{0, 0}, {10, 0}, {10, 10}}
	assert.InDelta(t, 1.0, DistToPolyline(Point{5, 1}, line), 1e-9)
}

func TestRingIsClosed(t *testing.T) {
	assert.True(t, RingIsClosed(square(), 1e-9))
	open := square()[:len(square())-1]
	assert.False(t, RingIsClosed(open, 1e-9))
}

func TestSelfIntersects(t *testing.T) {
	assert.False(t, SelfIntersects(square()))

	bowtie := []Point{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}
	assert.True(t, SelfIntersects(bowtie))
}

func TestPolygonAreaShoelace(t *testing.T) {
	area := PolygonAreaShoelace(square())
	require.InDelta(t, 100.0, area, 1e-9)
}
