package raster

import "errors"

var (
	// ErrMisaligned indicates two grids differ in shape, origin, cell size or CRS.
	ErrMisaligned = errors.New("rasters are not aligned")
	// ErrInvalidShape indicates a grid definition or value buffer is unusable.
	ErrInvalidShape = errors.New("invalid raster shape")
	// ErrUnsupportedFormat indicates a file format or pixel layout the readers do not handle.
	ErrUnsupportedFormat = errors.New("unsupported raster format")
	// ErrMissingGeoreference indicates a GeoTIFF without a world file.
	ErrMissingGeoreference = errors.New("missing georeference")
)
