// Command segment runs the drone search-and-rescue segment planner
// end to end: load a project configuration, compute launch-point
// segments over a DEM, and write the result as GeoJSON. It is a cobra
// root command plus a single operation subcommand, structured as a
// one-shot compute-and-write CLI rather than a long-lived server.
package main

import (
	"os"

	"github.com/dronesar/segmentplanner/cmd/segment/cli"
)

func main() {
	os.Exit(cli.Execute())
}
