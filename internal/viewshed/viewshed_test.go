package viewshed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesar/segmentplanner/internal/cellset"
	"github.com/dronesar/segmentplanner/internal/grid"
	"github.com/dronesar/segmentplanner/internal/logging"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/raster"
)

func flatSurface(n int, cellSize float64) *raster.Surface {
	s := &raster.Surface{
		Width: n, Height: n, CellSize: cellSize,
		OriginX: 0, OriginY: float64(n) * cellSize,
		Ground:  make([]float64, n*n),
		Surface: make([]float64, n*n),
		Target:  make([]bool, n*n),
	}
	for i := range s.Target {
		s.Target[i] = true
	}
	return s
}

func idx(surf *raster.Surface, row, col int) cellset.Index {
	return cellset.Pack(row, col, surf.Width)
}

func TestComputeFlatSurfaceSeesWholeRange(t *testing.T) {
	surf := flatSurface(21, 10)
	center := surf.CellCenter(10, 10)
	cands := []grid.Candidate{{Index: 0, Row: 10, Col: 10, Point: center}}

	results, err := Compute(context.Background(), surf, cands, 100, 150, 2, logging.NopReporter{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// On a flat surface every cell within range should be visible,
	// including the observer's own cell.
	assert.True(t, results[0].Visible.Contains(idx(surf, 10, 10)))
	assert.True(t, results[0].Visible.Contains(idx(surf, 0, 10)))
	assert.Greater(t, results[0].Visible.Len(), 1)
}

func TestComputeRidgeBlocksFarSide(t *testing.T) {
	n := 21
	surf := flatSurface(n, 10)
	// A tall ridge running the full width at row 10, between an observer
	// at row 5 and target cells at row 15+.
	for col := 0; col < n; col++ {
		surf.Surface[surf.Idx(10, col)] = 500
		surf.Ground[surf.Idx(10, col)] = 500
	}
	obs := surf.CellCenter(5, 10)
	cands := []grid.Candidate{{Index: 0, Row: 5, Col: 10, Point: obs}}

	results, err := Compute(context.Background(), surf, cands, 2, 150, 2, logging.NopReporter{})
	require.NoError(t, err)

	// Far side of the ridge (row 18) along the same column should be
	// occluded; the ridge cell itself should be visible.
	assert.True(t, results[0].Visible.Contains(idx(surf, 10, 10)))
	assert.False(t, results[0].Visible.Contains(idx(surf, 18, 10)))
}

func TestComputeRespectsMaxRange(t *testing.T) {
	n := 41
	surf := flatSurface(n, 10)
	obs := surf.CellCenter(20, 20)
	cands := []grid.Candidate{{Index: 0, Row: 20, Col: 20, Point: obs}}

	results, err := Compute(context.Background(), surf, cands, 50, 50, 2, logging.NopReporter{})
	require.NoError(t, err)

	// A cell far outside the 50m max range (5 cells * 10m = 50m) must not
	// be visible, even on a flat surface.
	assert.False(t, results[0].Visible.Contains(idx(surf, 0, 20)))
}

func TestComputeReturnsCancelledOnDoneContext(t *testing.T) {
	surf := flatSurface(21, 10)
	cands := make([]grid.Candidate, 0, 500)
	for i := 0; i < 500; i++ {
		row, col := i%21, (i/21)%21
		cands = append(cands, grid.Candidate{Index: i, Row: row, Col: col, Point: surf.CellCenter(row, col)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compute(ctx, surf, cands, 100, 150, 2, logging.NopReporter{})
	require.Error(t, err)
	kind, ok := planerr.As(err)
	require.True(t, ok)
	assert.Equal(t, planerr.Cancelled, kind)
}

func TestComputeReportsProgress(t *testing.T) {
	surf := flatSurface(11, 10)
	cands := make([]grid.Candidate, 0, 200)
	for i := 0; i < 200; i++ {
		row, col := i%11, (i/11)%11
		cands = append(cands, grid.Candidate{Index: i, Row: row, Col: col, Point: surf.CellCenter(row, col)})
	}
	reporter := logging.NewCollectingReporter()

	_, err := Compute(context.Background(), surf, cands, 10, 50, 2, reporter)
	require.NoError(t, err)

	events := reporter.Snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, "viewshed", events[0].Stage)
	assert.InDelta(t, 100.0, events[len(events)-1].Percent, 1e-9)
}

func TestComputeIsDeterministicAcrossRuns(t *testing.T) {
	surf := flatSurface(15, 10)
	obs := surf.CellCenter(7, 7)
	cands := []grid.Candidate{{Index: 0, Row: 7, Col: 7, Point: obs}}

	a, err := Compute(context.Background(), surf, cands, 50, 100, 2, logging.NopReporter{})
	require.NoError(t, err)
	b, err := Compute(context.Background(), surf, cands, 50, 100, 2, logging.NopReporter{})
	require.NoError(t, err)

	assert.Equal(t, a[0].Visible.Len(), b[0].Visible.Len())
}
