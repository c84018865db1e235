// Package converters holds the small value-correction interfaces the
// octree's ingestion path applies to a raw source point before it is run
// through the coordinate transformation core. Reprojection itself (source
// CRS to local ENU, WGS84, ECEF) is the transformation core's job
// (internal/coords.CoordinateTransformer); this package only covers
// corrections applied to a point's raw height ahead of that.
package converters

// ElevationCorrector adjusts a source point's raw height before it is
// handed to a CoordinateTransformer, e.g. to apply a fixed vertical
// offset some datasets need to line up their local vertical datum.
type ElevationCorrector interface {
	CorrectElevation(lon, lat, z float64) float64
}
