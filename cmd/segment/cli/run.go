package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dronesar/segmentplanner/internal/config"
	"github.com/dronesar/segmentplanner/internal/logging"
	"github.com/dronesar/segmentplanner/internal/plan"
)

var (
	configPath  string
	demPath     string
	vegPath     string
	roadsPath   string
	trailsPath  string
	outPath     string
	workers     int
	verbose     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "compute segments for a project and write the GeoJSON result",
	RunE:  runSegment,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&configPath, "config", "", "project configuration YAML (required)")
	runCmd.Flags().StringVar(&demPath, "dem", "", "DEM GeoTIFF path (overrides dem_path in config)")
	runCmd.Flags().StringVar(&vegPath, "vegetation", "", "vegetation height GeoTIFF path (overrides vegetation_path)")
	runCmd.Flags().StringVar(&roadsPath, "roads", "", "roads GeoJSON path (overrides roads_path)")
	runCmd.Flags().StringVar(&trailsPath, "trails", "", "trails GeoJSON path (overrides trails_path)")
	runCmd.Flags().StringVar(&outPath, "out", "segments.geojson", "output GeoJSON path")
	runCmd.Flags().IntVar(&workers, "workers", 0, "viewshed worker pool size (0 = GOMAXPROCS)")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "print stage progress to stderr")

	_ = runCmd.MarkFlagRequired("config")
}

func runSegment(cmd *cobra.Command, args []string) error {
	project, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		project.Workers = workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	var reporter logging.Reporter = logging.NopReporter{}
	if verbose {
		reporter = logging.NewRateLimitedReporter(stderrReporter{}, 4)
	}

	res, err := plan.Compute(ctx, project,
		plan.RasterInputs{DEMPath: demPath, VegetationPath: vegPath},
		plan.VectorInputs{RoadsPath: roadsPath, TrailsPath: trailsPath},
		reporter)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, res.GeoJSON, 0644); err != nil {
		return fmt.Errorf("writing result to %q: %w", outPath, err)
	}

	fmt.Fprintf(os.Stdout, "wrote %d segments (%.1f%% coverage) to %s\n",
		res.Diagnostics.SegmentsSelected, res.Diagnostics.CoverageFraction*100, outPath)
	return nil
}

// stderrReporter prints progress events to stderr, the --verbose sink.
type stderrReporter struct{}

func (stderrReporter) Report(e logging.Event) {
	fmt.Fprintf(os.Stderr, "[%s] %.0f%%\n", e.Stage, e.Percent)
}
