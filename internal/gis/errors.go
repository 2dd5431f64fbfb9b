package gis

import "errors"

var (
	// ErrNotPolygonal indicates a feature whose geometry is not a polygon.
	ErrNotPolygonal = errors.New("geometry is not polygonal")
	// ErrDuplicateZone indicates two zones share an identifier.
	ErrDuplicateZone = errors.New("duplicate zone id")
	// ErrMissingField indicates a required attribute column is absent or empty.
	ErrMissingField = errors.New("missing attribute field")
	// ErrTooLarge indicates a raster file exceeds the configured size limit.
	ErrTooLarge = errors.New("raster exceeds size limit")
	// ErrProjection indicates a coordinate reference system could not be parsed or applied.
	ErrProjection = errors.New("projection failed")
)
