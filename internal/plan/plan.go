// Package plan is the top-level orchestrator: it runs the CRS Resolver,
// Raster Preparer, Grid Generator, Access Classifier, Viewshed Engine,
// Coverage Selector, Polygon Builder and Result Assembler in sequence,
// emitting progress and honoring cancellation at each stage boundary.
// Each stage is a named function that takes and returns only the data
// the next stage needs, rather than one monolithic build routine.
package plan

import (
	"context"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/dronesar/segmentplanner/internal/access"
	"github.com/dronesar/segmentplanner/internal/config"
	"github.com/dronesar/segmentplanner/internal/coverage"
	"github.com/dronesar/segmentplanner/internal/crs"
	"github.com/dronesar/segmentplanner/internal/geojsonio"
	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/grid"
	"github.com/dronesar/segmentplanner/internal/logging"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/polygonbuilder"
	"github.com/dronesar/segmentplanner/internal/raster"
	"github.com/dronesar/segmentplanner/internal/result"
	"github.com/dronesar/segmentplanner/internal/viewshed"
)

// RasterInputs names the DEM and optional vegetation GeoTIFF paths,
// kept separate from config.Project so a caller can swap rasters
// between runs of the same project configuration.
type RasterInputs struct {
	DEMPath        string
	VegetationPath string
}

// VectorInputs names the optional roads/trails GeoJSON paths.
type VectorInputs struct {
	RoadsPath  string
	TrailsPath string
}

// Diagnostics is the run-level summary attached to every successful
// result; a failed run returns no ComputeResult and so no Diagnostics.
type Diagnostics struct {
	CandidatesGenerated int
	CandidatesRetained  int
	CellsTotal          int
	CellsCovered        int
	SegmentsSelected    int
	CoverageFraction    float64
}

// ComputeResult is Compute's successful output: the WGS84 segments, the
// ready-to-write GeoJSON bytes, and the run diagnostics.
type ComputeResult struct {
	Segments    []result.Segment
	GeoJSON     []byte
	Diagnostics Diagnostics
}

// Compute runs the full segment-planning pipeline for one project. It
// never touches internal/store; persistence is entirely the caller's
// responsibility. rasters/vectors override the corresponding paths in
// project, letting a caller rerun the same project configuration
// against different inputs.
func Compute(ctx context.Context, project config.Project, rasters RasterInputs, vectors VectorInputs, reporter logging.Reporter) (*ComputeResult, error) {
	if reporter == nil {
		reporter = logging.NopReporter{}
	}
	logger := logging.NewSlogLogger(nil)

	if rasters.DEMPath != "" {
		project.DEMPath = rasters.DEMPath
	}
	if rasters.VegetationPath != "" {
		project.VegetationPath = rasters.VegetationPath
	}
	if vectors.RoadsPath != "" {
		project.RoadsPath = vectors.RoadsPath
	}
	if vectors.TrailsPath != "" {
		project.TrailsPath = vectors.TrailsPath
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	logger.Progressf("resolving CRS for project %q", project.Name)
	polygonWGS84 := project.PolygonPoints()
	resolver, err := crs.Resolve(polygonWGS84)
	if err != nil {
		return nil, err
	}
	if err := resolver.Validate(polygonWGS84); err != nil {
		return nil, err
	}
	reporter.Report(logging.Event{Stage: "crs", Percent: 100})

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	logger.Progressf("preparing surface raster (%s)", resolver.EPSGName())
	surf, err := raster.Prepare(project.DEMPath, project.VegetationPath, polygonWGS84, resolver, project.MaxVLOSMeters)
	if err != nil {
		return nil, err
	}
	reporter.Report(logging.Event{Stage: "raster", Percent: 100})
	logger.Progressf(" - %d x %d cells, %d target", surf.Width, surf.Height, surf.TargetCount())

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	metricPolygon := make([]geomutil.Point, len(polygonWGS84))
	for i, p := range polygonWGS84 {
		metricPolygon[i] = resolver.Forward(p)
	}

	logger.Progressf("generating candidate launch points (spacing %.1fm)", project.GridSpacingMeters)
	cands, err := grid.GenerateOverSurface(metricPolygon, project.GridSpacingMeters, project.MaxCandidates, surf)
	if err != nil {
		return nil, err
	}
	reporter.Report(logging.Event{Stage: "grid", Percent: 100})
	logger.Progressf(" - %d candidates", len(cands))

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	var roadsWGS84, trailsWGS84 [][]geomutil.Point
	if project.RoadsPath != "" {
		roads, err := geojsonio.LoadLines(project.RoadsPath)
		if err != nil {
			return nil, err
		}
		roadsWGS84 = roads
	}
	if project.TrailsPath != "" {
		trails, err := geojsonio.LoadLines(project.TrailsPath)
		if err != nil {
			return nil, err
		}
		trailsWGS84 = trails
	}

	roadsMetric := projectLines(roadsWGS84, resolver)
	trailsMetric := projectLines(trailsWGS84, resolver)

	logger.Progressf("classifying access for %d candidates", len(cands))
	classified := access.Classify(cands, roadsMetric, trailsMetric, project.AccessBufferMeters)
	classified = access.Filter(classified, project)
	reporter.Report(logging.Event{Stage: "access", Percent: 100})
	logger.Progressf(" - %d candidates pass the allowed access set", len(classified))
	if len(classified) == 0 {
		return nil, planerr.Dataf("no candidate launch points satisfy the configured access_set")
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	logger.Progressf("computing viewsheds")
	plainCands := make([]grid.Candidate, len(classified))
	for i, c := range classified {
		plainCands[i] = c.Candidate
	}
	views, err := viewshed.Compute(ctx, surf, plainCands, project.DroneAGLMeters, project.MaxVLOSMeters, project.Workers, reporter)
	if err != nil {
		return nil, err
	}
	viewsByIndex := make(map[int]viewshed.Result, len(views))
	for _, v := range views {
		viewsByIndex[v.Candidate.Index] = v
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	preferredCells := int(project.PreferredAcres * 4046.8564224 / (surf.CellSize * surf.CellSize))
	if preferredCells <= 0 {
		preferredCells = 1
	}
	minUsefulCells := int(0.02 * float64(preferredCells))
	if minUsefulCells < 1 {
		minUsefulCells = 1
	}
	logger.Progressf("selecting segments (preferred size %d cells, stop threshold %d cells)", preferredCells, minUsefulCells)
	selections := coverage.Select(classified, viewsByIndex, surf.TargetCount(), coverage.Params{
		PreferredCells: preferredCells,
		MinUsefulCells: minUsefulCells,
		FrameSize:      surf.Width * surf.Height,
	})
	reporter.Report(logging.Event{Stage: "coverage", Percent: 100})
	logger.Progressf(" - %d segments selected", len(selections))
	if len(selections) == 0 {
		return nil, planerr.Dataf("no segments could be selected: no candidate cleared the minimum useful coverage threshold")
	}

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	searchPolyMetric, err := metricPolygonGeom(metricPolygon)
	if err != nil {
		return nil, err
	}

	logger.Progressf("building segment polygons")
	built := make([]*polygonbuilder.Built, 0, len(selections))
	for _, sel := range selections {
		b, err := polygonbuilder.Build(sel.Cells, surf, searchPolyMetric)
		if err != nil {
			return nil, err
		}
		built = append(built, b)
	}
	if err := polygonbuilder.ValidateDisjoint(built); err != nil {
		return nil, err
	}
	reporter.Report(logging.Event{Stage: "polygons", Percent: 100})

	segments, err := result.Assemble(selections, built, surf, resolver, surf.TargetCount())
	if err != nil {
		return nil, err
	}

	totalCoverage := coverage.CoverageFraction(selections, surf.TargetCount(), surf.Width*surf.Height)
	geojsonBytes := result.ToFeatureCollection(segments, len(cands), len(classified), totalCoverage)

	diag := Diagnostics{
		CandidatesGenerated: len(cands),
		CandidatesRetained:  len(classified),
		CellsTotal:          surf.TargetCount(),
		CellsCovered:        int(totalCoverage * float64(surf.TargetCount())),
		SegmentsSelected:    len(selections),
		CoverageFraction:    totalCoverage,
	}
	logger.Progressf("done: %d segments, %.1f%% coverage", diag.SegmentsSelected, diag.CoverageFraction*100)

	return &ComputeResult{Segments: segments, GeoJSON: geojsonBytes, Diagnostics: diag}, nil
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return planerr.ErrCancelled
	default:
		return nil
	}
}

func projectLines(lines [][]geomutil.Point, resolver *crs.Resolver) [][]geomutil.Point {
	out := make([][]geomutil.Point, len(lines))
	for i, line := range lines {
		m := make([]geomutil.Point, len(line))
		for j, p := range line {
			m[j] = resolver.Forward(p)
		}
		out[i] = m
	}
	return out
}

func metricPolygonGeom(ringMetric []geomutil.Point) (geom.Geometry, error) {
	closed := ringMetric
	if len(closed) == 0 || closed[0] != closed[len(closed)-1] {
		closed = append(append([]geomutil.Point{}, ringMetric...), ringMetric[0])
	}
	coords := make([]float64, 0, len(closed)*2)
	for _, p := range closed {
		coords = append(coords, p.X, p.Y)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	ring, err := geom.NewLineString(seq)
	if err != nil {
		return geom.Geometry{}, planerr.Wrap(planerr.Internal, err, "building search polygon ring")
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Geometry{}, planerr.Wrap(planerr.Internal, err, "building search polygon")
	}
	return poly.AsGeometry(), nil
}
