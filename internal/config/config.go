// Package config defines the immutable project configuration and loads
// it from YAML.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
)

// AccessMode is one of the four access classes a launch point can be
// reached by.
type AccessMode string

const (
	AccessRoad     AccessMode = "road"
	AccessTrail    AccessMode = "trail"
	AccessOffRoad  AccessMode = "off_road"
	AccessAnywhere AccessMode = "anywhere"
)

var validAccessModes = map[AccessMode]bool{
	AccessRoad: true, AccessTrail: true, AccessOffRoad: true, AccessAnywhere: true,
}

// Project is the immutable configuration accepted once per mission.
// YAML tags match the field names a driver would author by hand in a
// mission file.
type Project struct {
	Name string `yaml:"name"`

	// Polygon is the search area's exterior ring, WGS84 lon/lat,
	// closed, non-self-intersecting, at least 4 vertices.
	Polygon []Point `yaml:"polygon"`

	DroneAGLMeters       float64 `yaml:"drone_agl_m"`
	PreferredAcres       float64 `yaml:"preferred_segment_acres"`
	MaxVLOSMeters        float64 `yaml:"max_vlos_m"`
	GridSpacingMeters    float64 `yaml:"grid_spacing_m"`
	AccessBufferMeters   float64 `yaml:"access_buffer_m"`
	AllowedAccess        []AccessMode `yaml:"access_set"`

	DEMPath        string `yaml:"dem_path"`
	VegetationPath string `yaml:"vegetation_path,omitempty"`
	RoadsPath      string `yaml:"roads_path,omitempty"`
	TrailsPath     string `yaml:"trails_path,omitempty"`

	// MaxCandidates bounds candidate count under a memory budget; zero
	// means unbounded.
	MaxCandidates int `yaml:"max_candidates,omitempty"`

	// Workers sizes the viewshed worker pool; zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
}

// Point is a WGS84 longitude/latitude pair.
type Point struct {
	Lon float64 `yaml:"lon"`
	Lat float64 `yaml:"lat"`
}

// Status is the project's lifecycle state.
type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusCancelling Status = "cancelling"
)

// Load reads and validates a Project from a YAML file.
func Load(path string) (Project, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Project{}, planerr.Wrap(planerr.Config, err, "reading project config %q", path)
	}
	var p Project
	if err := yaml.Unmarshal(buf, &p); err != nil {
		return Project{}, planerr.Wrap(planerr.Config, err, "parsing project config %q", path)
	}
	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Validate checks every configuration bound and fails fast with a
// ConfigError, before any expensive raster work starts.
func (p Project) Validate() error {
	if len(p.Polygon) < 4 {
		return planerr.Configf("search polygon needs at least 4 vertices, got %d", len(p.Polygon))
	}

	ring := p.PolygonPoints()
	if !geomutil.RingIsClosed(ring, 1e-9) {
		return planerr.Configf("search polygon must be closed (first vertex == last vertex)")
	}
	open := ring[:len(ring)-1]
	if geomutil.SelfIntersects(append(append([]geomutil.Point{}, open...), open[0])) {
		return planerr.Configf("search polygon must not self-intersect")
	}

	if p.DroneAGLMeters <= 0 || p.DroneAGLMeters > 500 {
		return planerr.Configf("drone_agl_m must be in (0, 500], got %v", p.DroneAGLMeters)
	}
	if p.PreferredAcres <= 0 {
		return planerr.Configf("preferred_segment_acres must be > 0, got %v", p.PreferredAcres)
	}
	if p.MaxVLOSMeters <= 0 {
		return planerr.Configf("max_vlos_m must be > 0, got %v", p.MaxVLOSMeters)
	}
	if p.GridSpacingMeters <= 0 {
		return planerr.Configf("grid_spacing_m must be > 0, got %v", p.GridSpacingMeters)
	}
	if p.AccessBufferMeters < 0 {
		return planerr.Configf("access_buffer_m must be >= 0, got %v", p.AccessBufferMeters)
	}
	if len(p.AllowedAccess) == 0 {
		return planerr.Configf("access_set must not be empty")
	}
	for _, m := range p.AllowedAccess {
		if !validAccessModes[m] {
			return planerr.Configf("unknown access mode %q", m)
		}
	}
	if p.DEMPath == "" {
		return planerr.Configf("dem_path is required")
	}
	return nil
}

// PolygonPoints converts the configured WGS84 polygon to geomutil.Point
// (lon=X, lat=Y), preserving vertex order.
func (p Project) PolygonPoints() []geomutil.Point {
	out := make([]geomutil.Point, len(p.Polygon))
	for i, v := range p.Polygon {
		out[i] = geomutil.Point{X: v.Lon, Y: v.Lat}
	}
	return out
}

// AllowsAccess reports whether mode is in the project's allowed access
// set, with AccessAnywhere acting as a wildcard acceptor.
func (p Project) AllowsAccess(mode AccessMode) bool {
	for _, m := range p.AllowedAccess {
		if m == mode || m == AccessAnywhere {
			return true
		}
	}
	return false
}
