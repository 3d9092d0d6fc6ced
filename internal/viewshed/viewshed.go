// Package viewshed implements the Viewshed Engine: a horizon-angle
// raytracing visibility computation from each candidate launch point
// over the prepared surface raster, run across a worker pool with
// cooperative cancellation checked between candidate batches. The hot
// per-ray loop holds elevations and distances in float32, matching the
// surface raster's native GeoTIFF storage; transcendental ops run
// through math.Sqrt/math.Atan2 at float64 and are narrowed back to
// float32 rather than hand-rolling float32 trig.
package viewshed

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/dronesar/segmentplanner/internal/cellset"
	"github.com/dronesar/segmentplanner/internal/grid"
	"github.com/dronesar/segmentplanner/internal/logging"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/raster"
)

// Result is the visible-cell set computed for one candidate, with the
// observer at droneAGL above the launch cell's ground elevation, target
// height zero, and max range maxVLOSMeters.
type Result struct {
	Candidate grid.Candidate
	Visible   cellset.Set
}

// Compute runs the viewshed for every candidate against surf, using up
// to workers goroutines. It reports progress through reporter each time a
// batch has been handed to the workers (the percentage counts queued
// candidates, not finished ones) and checks ctx for cancellation between
// batches, returning
// planerr.ErrCancelled if the context is done before all candidates
// finish.
func Compute(ctx context.Context, surf *raster.Surface, cands []grid.Candidate, droneAGLMeters, maxVLOSMeters float64, workers int, reporter logging.Reporter) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(cands))

	const batchSize = 64
	jobs := make(chan int, batchSize)
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			visible, err := computeOne(surf, cands[idx], droneAGLMeters, maxVLOSMeters)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				continue
			}
			results[idx] = Result{Candidate: cands[idx], Visible: visible}
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go worker()
	}

	done := 0
	for start := 0; start < len(cands); start += batchSize {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, planerr.ErrCancelled
		default:
		}
		end := start + batchSize
		if end > len(cands) {
			end = len(cands)
		}
		for i := start; i < end; i++ {
			jobs <- i
		}
		done = end
		if reporter != nil {
			reporter.Report(logging.Event{Stage: "viewshed", Percent: 100 * float64(done) / float64(len(cands))})
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// computeOne casts a ray from the candidate's launch cell to every cell
// within maxVLOSMeters, tracking the maximum elevation angle seen along
// each ray (the horizon-angle algorithm): a cell is visible only if its
// elevation angle from the observer is at least every angle sampled
// before it on the same ray (ties count as visible). Only target cells
// are added to the visible set; non-target cells still occlude.
func computeOne(surf *raster.Surface, c grid.Candidate, droneAGLMeters, maxVLOSMeters float64) (cellset.Set, error) {
	obsRow, obsCol := surf.CellOf(c.Point)
	if !surf.InBounds(obsRow, obsCol) {
		return nil, planerr.Internalf("candidate %d launch point falls outside the surface raster", c.Index)
	}
	obsElev := float32(surf.Ground[surf.Idx(obsRow, obsCol)]) + float32(droneAGLMeters)

	cellSize := float32(surf.CellSize)
	maxRangeCells := int(maxVLOSMeters/surf.CellSize) + 1

	visible := cellset.New(0, surf.Width*surf.Height)
	visible.Add(cellset.Pack(obsRow, obsCol, surf.Width))

	minRow := clampInt(obsRow-maxRangeCells, 0, surf.Height-1)
	maxRow := clampInt(obsRow+maxRangeCells, 0, surf.Height-1)
	minCol := clampInt(obsCol-maxRangeCells, 0, surf.Width-1)
	maxCol := clampInt(obsCol+maxRangeCells, 0, surf.Width-1)

	// Ray targets are the perimeter cells of the bounding box; interior
	// cells are sampled as each ray is walked outward from the observer
	// (standard horizon-angle sweep, e.g. Franklin & Ray 1994).
	for _, edge := range perimeterCells(minRow, minCol, maxRow, maxCol) {
		castRay(surf, obsRow, obsCol, edge[0], edge[1], obsElev, cellSize, float32(maxVLOSMeters), visible)
	}

	return visible, nil
}

func castRay(surf *raster.Surface, obsRow, obsCol, targetRow, targetCol int, obsElev, cellSize, maxRange float32, visible cellset.Set) {
	dRow := targetRow - obsRow
	dCol := targetCol - obsCol
	steps := dRow
	if absInt(dCol) > absInt(steps) {
		steps = dCol
	}
	steps = absInt(steps)
	if steps == 0 {
		return
	}

	maxAngle := float32(math.Inf(-1))
	var dist float32

	for s := 1; s <= steps; s++ {
		t := float32(s) / float32(steps)
		row := obsRow + int(math.Round(float64(float32(dRow)*t)))
		col := obsCol + int(math.Round(float64(float32(dCol)*t)))
		if !surf.InBounds(row, col) {
			break
		}
		dx := float32(row-obsRow) * cellSize
		dy := float32(col-obsCol) * cellSize
		dist = float32(math.Sqrt(float64(dx*dx + dy*dy)))
		if dist > maxRange {
			break
		}

		elev := float32(surf.Surface[surf.Idx(row, col)])
		var angle float32
		if dist > 0 {
			angle = float32(math.Atan2(float64(elev-obsElev), float64(dist)))
		} else {
			angle = float32(math.Inf(1))
		}

		if angle >= maxAngle {
			if surf.Target[surf.Idx(row, col)] {
				visible.Add(cellset.Pack(row, col, surf.Width))
			}
			maxAngle = angle
		}
	}
}

// perimeterCells enumerates the cells on the border of the rectangle
// [minRow,maxRow]x[minCol,maxCol], the ray-target set for a bounded
// horizon sweep.
func perimeterCells(minRow, minCol, maxRow, maxCol int) [][2]int {
	var out [][2]int
	for col := minCol; col <= maxCol; col++ {
		out = append(out, [2]int{minRow, col}, [2]int{maxRow, col})
	}
	for row := minRow + 1; row < maxRow; row++ {
		out = append(out, [2]int{row, minCol}, [2]int{row, maxCol})
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
