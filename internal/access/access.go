// Package access implements the Access Classifier: it labels each
// candidate launch point by its distance to the nearest road or trail,
// and filters out candidates whose resulting access mode isn't in the
// project's allowed access set.
package access

import (
	"github.com/dronesar/segmentplanner/internal/config"
	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/grid"
)

// Classified pairs a candidate with its resolved access mode.
type Classified struct {
	grid.Candidate
	Mode config.AccessMode
}

// Classify labels every candidate by distance to the nearest road or
// trail polyline (both in the same metric CRS as candidates), using
// bufferMeters as the maximum distance a candidate may sit from a line
// and still count as reachable by it. Roads are checked before trails,
// matching the access-priority order used for the Coverage Selector's
// tie-breaks.
func Classify(cands []grid.Candidate, roads, trails [][]geomutil.Point, bufferMeters float64) []Classified {
	out := make([]Classified, len(cands))
	for i, c := range cands {
		out[i] = Classified{Candidate: c, Mode: classifyOne(c.Point, roads, trails, bufferMeters)}
	}
	return out
}

func classifyOne(p geomutil.Point, roads, trails [][]geomutil.Point, bufferMeters float64) config.AccessMode {
	if nearAny(p, roads, bufferMeters) {
		return config.AccessRoad
	}
	if nearAny(p, trails, bufferMeters) {
		return config.AccessTrail
	}
	return config.AccessOffRoad
}

func nearAny(p geomutil.Point, lines [][]geomutil.Point, bufferMeters float64) bool {
	for _, line := range lines {
		if len(line) < 2 {
			continue
		}
		if geomutil.DistToPolyline(p, line) <= bufferMeters {
			return true
		}
	}
	return false
}

// Filter keeps only the classified candidates whose access mode is
// allowed by the project's access set, preserving order.
func Filter(classified []Classified, project config.Project) []Classified {
	out := classified[:0]
	for _, c := range classified {
		if project.AllowsAccess(c.Mode) {
			out = append(out, c)
		}
	}
	return out
}

// Priority ranks an access mode for the Coverage Selector's tie-break
// rule: road > trail > off_road > anywhere. Lower is preferred.
func Priority(mode config.AccessMode) int {
	switch mode {
	case config.AccessRoad:
		return 0
	case config.AccessTrail:
		return 1
	case config.AccessOffRoad:
		return 2
	default:
		return 3
	}
}
