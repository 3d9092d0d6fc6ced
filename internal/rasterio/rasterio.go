// Package rasterio is the thin GeoTIFF adapter between GDAL and the pure
// Go raster.Prepare: it opens a DEM or vegetation GeoTIFF, reprojects
// and resamples it with GDAL's warp operator, and hands back a flat
// []float32 buffer plus geotransform and CRS metadata. raster.Prepare
// never imports godal directly; it only sees the Grid this package
// returns.
package rasterio

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/dronesar/segmentplanner/internal/planerr"
)

func init() {
	godal.RegisterAll()
}

// Grid is a single-band raster plus its affine transform and CRS, the
// flat representation raster.Prepare consumes.
type Grid struct {
	Width, Height int
	// GeoTransform is the standard GDAL 6-element affine transform:
	// [originX, pixelWidth, 0, originY, 0, -pixelHeight].
	GeoTransform [6]float64
	WKT          string
	NoData       float64
	HasNoData    bool
	Values       []float32 // row-major, length Width*Height
}

// CellSize returns the grid's uniform pixel size.
func (g *Grid) CellSize() float64 { return g.GeoTransform[1] }

// OpenAndWarp opens the GeoTIFF at path, reprojects it to dstWKT at
// dstGeoTransform/width/height using the given resampling algorithm
// ("bilinear" for the DEM, "near" for vegetation), and returns the
// resulting Grid. Bounds and resolution come from the caller
// (raster.Prepare) so DEM and vegetation land on an identical grid.
func OpenAndWarp(path string, dstWKT string, dstGeoTransform [6]float64, width, height int, resampling string) (*Grid, error) {
	src, err := godal.Open(path)
	if err != nil {
		return nil, planerr.Wrap(planerr.Data, err, "opening raster %q", path)
	}
	defer src.Close()

	alg := godal.Bilinear
	if resampling == "near" {
		alg = godal.NearestNeighbour
	}

	dst, err := src.Warp("", []string{
		"-t_srs", dstWKT,
		"-te",
		fmt.Sprintf("%v", dstGeoTransform[0]),
		fmt.Sprintf("%v", dstGeoTransform[3]+float64(height)*dstGeoTransform[5]),
		fmt.Sprintf("%v", dstGeoTransform[0]+float64(width)*dstGeoTransform[1]),
		fmt.Sprintf("%v", dstGeoTransform[3]),
		"-ts", fmt.Sprintf("%d", width), fmt.Sprintf("%d", height),
		"-r", resamplingName(alg),
	}, godal.GTiffCreationOptions())
	if err != nil {
		return nil, planerr.Wrap(planerr.Data, err, "reprojecting raster %q", path)
	}
	defer dst.Close()

	bands := dst.Bands()
	if len(bands) == 0 {
		return nil, planerr.Dataf("raster %q has no bands after warp", path)
	}
	band := bands[0]

	values := make([]float32, width*height)
	if err := band.Read(0, 0, values, width, height); err != nil {
		return nil, planerr.Wrap(planerr.Data, err, "reading warped raster %q", path)
	}

	noData, hasNoData := band.NoData()

	return &Grid{
		Width:        width,
		Height:       height,
		GeoTransform: dstGeoTransform,
		WKT:          dstWKT,
		NoData:       noData,
		HasNoData:    hasNoData,
		Values:       values,
	}, nil
}

func resamplingName(alg godal.ResamplingAlg) string {
	if alg == godal.NearestNeighbour {
		return "near"
	}
	return "bilinear"
}

// Bounds returns the source dataset's native bounding rectangle in its
// own CRS, its native pixel size (the geotransform's pixel width), and
// its projection WKT, without reprojecting — used by raster.Prepare to
// decide the target frame and cell size before warping.
func Bounds(path string) (minX, minY, maxX, maxY, pixelSize float64, wkt string, err error) {
	ds, oerr := godal.Open(path)
	if oerr != nil {
		return 0, 0, 0, 0, 0, "", planerr.Wrap(planerr.Data, oerr, "opening raster %q", path)
	}
	defer ds.Close()

	bbox, berr := ds.Bounds()
	if berr != nil {
		return 0, 0, 0, 0, 0, "", planerr.Wrap(planerr.Data, berr, "reading bounds of %q", path)
	}
	geot, gerr := ds.GeoTransform()
	if gerr != nil {
		return 0, 0, 0, 0, 0, "", planerr.Wrap(planerr.Data, gerr, "reading geotransform of %q", path)
	}
	return bbox[0], bbox[1], bbox[2], bbox[3], geot[1], ds.Projection(), nil
}
