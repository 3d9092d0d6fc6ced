// Package coverage implements the Coverage Selector: a greedy
// maximum-coverage loop over candidate viewsheds, penalizing segments
// that overshoot the preferred size and breaking ties by gain, then
// access priority, then candidate index for determinism.
package coverage

import (
	"github.com/dronesar/segmentplanner/internal/access"
	"github.com/dronesar/segmentplanner/internal/cellset"
	"github.com/dronesar/segmentplanner/internal/viewshed"
)

// Selection is one segment picked by the greedy loop.
type Selection struct {
	Candidate    access.Classified
	Cells        cellset.Set // newly-covered cells this round (the gain)
	GainCells    int
	Score        float64
}

// Params bundles the tunables of the scoring function.
type Params struct {
	PreferredCells int // preferred_segment_acres converted to a cell count
	MinUsefulCells int // stop threshold below which a round's gain is not worth selecting
	FrameSize      int // total cell count of the surface raster, sizing the covered-cells bitset
}

// Select runs the greedy loop: at each round it picks the candidate whose
// marginal gain (visible cells not yet covered) times the size-preference
// penalty is highest, accumulates its covered cells into the running
// total, and stops once no candidate clears MinUsefulCells of marginal
// gain or candidates are exhausted.
func Select(candidates []access.Classified, views map[int]viewshed.Result, totalTargetCells int, params Params) []Selection {
	covered := cellset.New(0, params.FrameSize)
	remaining := make([]int, 0, len(candidates))
	for i := range candidates {
		remaining = append(remaining, i)
	}

	var selections []Selection
	for len(remaining) > 0 {
		bestIdx := -1
		bestPos := -1
		bestGain := -1
		var bestScore float64

		for pos, ci := range remaining {
			res, ok := views[candidates[ci].Index]
			if !ok {
				continue
			}
			gain := res.Visible.DifferenceSize(covered)
			if gain < params.MinUsefulCells {
				continue
			}
			score := float64(gain) * penalty(gain, params.PreferredCells)

			if better(score, gain, candidates[ci], bestScore, bestGain, bestIdxCandidate(candidates, bestIdx)) {
				bestIdx = ci
				bestPos = pos
				bestGain = gain
				bestScore = score
			}
		}

		if bestIdx < 0 {
			break
		}

		res := views[candidates[bestIdx].Index]
		gainSet := cellset.New(bestGain, params.FrameSize)
		res.Visible.Each(func(idx cellset.Index) {
			if !covered.Contains(idx) {
				gainSet.Add(idx)
			}
		})
		gainSet.UnionInto(covered)

		selections = append(selections, Selection{
			Candidate: candidates[bestIdx],
			Cells:     gainSet,
			GainCells: bestGain,
			Score:     bestScore,
		})

		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selections
}

// better implements the selector's tie-break: higher score wins; ties
// broken by higher gain, then by access priority
// (road>trail>off_road>anywhere), then by lower candidate index.
func better(score float64, gain int, cand access.Classified, bestScore float64, bestGain int, bestCand *access.Classified) bool {
	if bestCand == nil {
		return true
	}
	if score != bestScore {
		return score > bestScore
	}
	if gain != bestGain {
		return gain > bestGain
	}
	pc, pb := access.Priority(cand.Mode), access.Priority(bestCand.Mode)
	if pc != pb {
		return pc < pb
	}
	return cand.Index < bestCand.Index
}

func bestIdxCandidate(candidates []access.Classified, bestIdx int) *access.Classified {
	if bestIdx < 0 {
		return nil
	}
	return &candidates[bestIdx]
}

// penalty implements the size-preference function: gains at or below
// preferredCells score 1.0; gains past it are discounted in direct
// proportion to the overshoot (preferredCells/gainCells), so the
// selector prefers several near-preferred-size segments over one
// oversized one.
func penalty(gainCells, preferredCells int) float64 {
	if preferredCells <= 0 || gainCells <= preferredCells {
		return 1.0
	}
	return float64(preferredCells) / float64(gainCells)
}

// CoverageFraction returns covered/total, the run-level coverage
// diagnostic. frameSize is the surface raster's full cell count
// (Width*Height), needed to size the union bitset correctly since cell
// indices range over the whole frame, not just target cells.
func CoverageFraction(selections []Selection, totalTargetCells, frameSize int) float64 {
	if totalTargetCells == 0 {
		return 0
	}
	covered := cellset.New(0, frameSize)
	for _, s := range selections {
		s.Cells.UnionInto(covered)
	}
	return float64(covered.Len()) / float64(totalTargetCells)
}
