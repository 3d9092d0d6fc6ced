// Package cli is the cobra command tree for the segment planner: a
// root command plus one operation subcommand carrying the real flags.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dronesar/segmentplanner/internal/planerr"
)

var rootCmd = &cobra.Command{
	Use:   "segment",
	Short: "plan drone search-and-rescue launch-point segments",
	Long: `segment computes a set of drone launch-point segments covering a
search polygon, given a digital elevation model and a project
configuration (search area, drone altitude, visual-line-of-sight range,
and access constraints). Results are written as a GeoJSON
FeatureCollection.`,
}

// Execute runs the command tree and returns the process exit code:
// 0 success, 2 ConfigError, 3 DataError, 4 Cancelled, 5 InternalError,
// 6 ResourceError.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCodeFor(err)
	}
	return 0
}

func exitCodeFor(err error) int {
	kind, ok := planerr.As(err)
	if !ok {
		return 5
	}
	switch kind {
	case planerr.Config:
		return 2
	case planerr.Data:
		return 3
	case planerr.Cancelled:
		return 4
	case planerr.Resource:
		return 6
	default:
		return 5
	}
}
