// Package crs implements the CRS Resolver: it picks a metric projection
// for a WGS84 search polygon (UTM, or polar stereographic near the
// poles) and exposes paired forward/inverse transforms plus an
// area_acres helper. UTM/polar-stereographic math is closed-form and
// the accuracy this domain needs doesn't warrant a cgo PROJ dependency
// — see DESIGN.md.
package crs

import (
	"fmt"
	"math"

	"github.com/dronesar/segmentplanner/internal/geomutil"
	"github.com/dronesar/segmentplanner/internal/planerr"
)

// WGS84 ellipsoid constants.
const (
	wgs84A = 6378137.0
	wgs84F = 1.0 / 298.257223563
)

var (
	wgs84B  = wgs84A * (1 - wgs84F)
	wgs84E2 = wgs84F * (2 - wgs84F)
	wgs84Ep2 = wgs84E2 / (1 - wgs84E2)
)

const k0 = 0.9996 // UTM scale factor at central meridian

// Kind distinguishes the two families of metric projection this
// resolver can pick.
type Kind int

const (
	UTM Kind = iota
	PolarStereographic
)

// Resolver is the stateless CRS Resolver: an EPSG code plus paired
// forward/inverse transforms.
type Resolver struct {
	Kind  Kind
	EPSG  int
	Zone  int  // UTM zone, 1..60 (zero for polar stereographic)
	North bool // hemisphere / pole
}

// Resolve picks the metric projection for the polygon's centroid: the
// UTM zone containing the centroid's longitude, hemisphere from
// centroid latitude, or polar stereographic above 84N / below 80S.
func Resolve(polygonWGS84 []geomutil.Point) (*Resolver, error) {
	if len(polygonWGS84) == 0 {
		return nil, planerr.Configf("cannot resolve CRS for an empty polygon")
	}
	c := geomutil.Centroid(polygonWGS84)
	if c.Y < -89.9 || c.Y > 89.9 {
		return nil, planerr.Configf("polygon centroid latitude %.4f out of range [-89.9, 89.9]", c.Y)
	}

	if c.Y > 84 {
		return &Resolver{Kind: PolarStereographic, EPSG: 3413, North: true}, nil
	}
	if c.Y < -80 {
		return &Resolver{Kind: PolarStereographic, EPSG: 3031, North: false}, nil
	}

	zone := int(math.Floor((c.X+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	north := c.Y >= 0
	epsg := 32600 + zone
	if !north {
		epsg = 32700 + zone
	}
	return &Resolver{Kind: UTM, EPSG: epsg, Zone: zone, North: north}, nil
}

// Forward projects a WGS84 lon/lat point to metric easting/northing
// meters in the resolved CRS.
func (r *Resolver) Forward(p geomutil.Point) geomutil.Point {
	switch r.Kind {
	case PolarStereographic:
		return forwardPolarStereographic(p, r.North)
	default:
		return forwardUTM(p, r.Zone)
	}
}

// Inverse is the exact inverse of Forward.
func (r *Resolver) Inverse(p geomutil.Point) geomutil.Point {
	switch r.Kind {
	case PolarStereographic:
		return inversePolarStereographic(p, r.North)
	default:
		return inverseUTM(p, r.Zone, r.North)
	}
}

// Validate round-trips every vertex of polygonWGS84 through
// Forward/Inverse and fails with a ConfigError if any vertex's round
// trip error exceeds 1e-6 degrees, catching a degenerate EPSG pick
// before the expensive raster stages run.
func (r *Resolver) Validate(polygonWGS84 []geomutil.Point) error {
	const tol = 1e-6
	for i, p := range polygonWGS84 {
		back := r.Inverse(r.Forward(p))
		if math.Abs(back.X-p.X) > tol || math.Abs(back.Y-p.Y) > tol {
			return planerr.Configf(
				"CRS round-trip error at vertex %d exceeds %.1e degrees (got lon %.9f, lat %.9f back from %.9f, %.9f)",
				i, tol, back.X, back.Y, p.X, p.Y)
		}
	}
	return nil
}

// AreaAcres returns the planar area of a metric-coordinate ring in
// acres (1 acre = 4046.8564224 m^2).
func AreaAcres(ringMetric []geomutil.Point) float64 {
	return geomutil.PolygonAreaShoelace(ringMetric) / 4046.8564224
}

// EPSGName renders a human-readable code, e.g. "EPSG:32633".
func (r *Resolver) EPSGName() string { return fmt.Sprintf("EPSG:%d", r.EPSG) }

// --- UTM transverse Mercator, Snyder (1987) series formulas ---

func centralMeridian(zone int) float64 {
	return float64(zone)*6 - 183
}

func forwardUTM(p geomutil.Point, zone int) geomutil.Point {
	lat := p.Y * math.Pi / 180
	lon := p.X * math.Pi / 180
	lon0 := centralMeridian(zone) * math.Pi / 180

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	tanLat := math.Tan(lat)

	nu := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	t := tanLat * tanLat
	c := wgs84Ep2 * cosLat * cosLat
	a := (lon - lon0) * cosLat

	m := wgs84A * ((1-wgs84E2/4-3*wgs84E2*wgs84E2/64-5*wgs84E2*wgs84E2*wgs84E2/256)*lat -
		(3*wgs84E2/8+3*wgs84E2*wgs84E2/32+45*wgs84E2*wgs84E2*wgs84E2/1024)*math.Sin(2*lat) +
		(15*wgs84E2*wgs84E2/256+45*wgs84E2*wgs84E2*wgs84E2/1024)*math.Sin(4*lat) -
		(35*wgs84E2*wgs84E2*wgs84E2/3072)*math.Sin(6*lat))

	easting := k0*nu*(a+(1-t+c)*a*a*a/6+(5-18*t+t*t+72*c-58*wgs84Ep2)*a*a*a*a*a/120) + 500000

	northing := k0 * (m + nu*tanLat*(a*a/2+(5-t+9*c+4*c*c)*a*a*a*a/24+
		(61-58*t+t*t+600*c-330*wgs84Ep2)*a*a*a*a*a*a/720))

	if lat < 0 {
		northing += 10000000
	}

	return geomutil.Point{X: easting, Y: northing}
}

func inverseUTM(p geomutil.Point, zone int, north bool) geomutil.Point {
	x := p.X - 500000
	y := p.Y
	if !north {
		y -= 10000000
	}
	lon0 := centralMeridian(zone) * math.Pi / 180

	e1 := (1 - math.Sqrt(1-wgs84E2)) / (1 + math.Sqrt(1-wgs84E2))
	m := y / k0

	mu := m / (wgs84A * (1 - wgs84E2/4 - 3*wgs84E2*wgs84E2/64 - 5*wgs84E2*wgs84E2*wgs84E2/256))

	phi1 := mu + (3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	n1 := wgs84A / math.Sqrt(1-wgs84E2*sinPhi1*sinPhi1)
	t1 := tanPhi1 * tanPhi1
	c1 := wgs84Ep2 * cosPhi1 * cosPhi1
	r1 := wgs84A * (1 - wgs84E2) / math.Pow(1-wgs84E2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * k0)

	lat := phi1 - (n1*tanPhi1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*wgs84Ep2)*d*d*d*d/24+
		(61+90*t1+298*c1+45*t1*t1-252*wgs84Ep2-3*c1*c1)*d*d*d*d*d*d/720)

	lon := lon0 + (d-(1+2*t1+c1)*d*d*d/6+
		(5-2*c1+28*t1-3*c1*c1+8*wgs84Ep2+24*t1*t1)*d*d*d*d*d/120)/cosPhi1

	return geomutil.Point{X: lon * 180 / math.Pi, Y: lat * 180 / math.Pi}
}

// --- Polar stereographic (ellipsoidal, EPSG 3413 / 3031 style) ---

func forwardPolarStereographic(p geomutil.Point, north bool) geomutil.Point {
	lat := p.Y * math.Pi / 180
	lon := p.X * math.Pi / 180
	if !north {
		lat, lon = -lat, -lon
	}
	e := math.Sqrt(wgs84E2)
	t := math.Tan(math.Pi/4-lat/2) /
		math.Pow((1-e*math.Sin(lat))/(1+e*math.Sin(lat)), e/2)
	rho := 2 * wgs84A * k0 * t / math.Sqrt(math.Pow(1+e, 1+e)*math.Pow(1-e, 1-e))

	x := rho * math.Sin(lon)
	y := -rho * math.Cos(lon)
	if !north {
		y = -y
	}
	return geomutil.Point{X: x + 2000000, Y: y + 2000000}
}

func inversePolarStereographic(p geomutil.Point, north bool) geomutil.Point {
	x := p.X - 2000000
	y := p.Y - 2000000
	if !north {
		y = -y
	}
	e := math.Sqrt(wgs84E2)
	rho := math.Hypot(x, y)
	t := rho * math.Sqrt(math.Pow(1+e, 1+e)*math.Pow(1-e, 1-e)) / (2 * wgs84A * k0)

	chi := math.Pi/2 - 2*math.Atan(t)
	lat := chi +
		(wgs84E2/2+5*wgs84E2*wgs84E2/24+wgs84E2*wgs84E2*wgs84E2/12)*math.Sin(2*chi) +
		(7*wgs84E2*wgs84E2/48+29*wgs84E2*wgs84E2*wgs84E2/240)*math.Sin(4*chi) +
		(7*wgs84E2*wgs84E2*wgs84E2/120)*math.Sin(6*chi)

	lon := math.Atan2(x, -y)
	if !north {
		lat, lon = -lat, -lon
	}
	return geomutil.Point{X: lon * 180 / math.Pi, Y: lat * 180 / math.Pi}
}
