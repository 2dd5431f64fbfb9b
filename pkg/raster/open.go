package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Option adjusts a raster after it is read.
type Option func(*Raster)

// NoData overrides the nodata marker recorded in the file.
func NoData(v float64) Option {
	return func(r *Raster) {
		r.WithNoData(v)
	}
}

// CRS assigns the coordinate reference system of the grid.
func CRS(crs string) Option {
	return func(r *Raster) {
		r.CRS = crs
	}
}

// Open reads the raster at path, choosing the decoder by file extension:
// .asc for ESRI ASCII grids, .tif or .tiff for GeoTIFF class layers.
func Open(path string, opts ...Option) (*Raster, error) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	var r *Raster
	switch ext(path) {
	case ".asc":
		r, err = ReadASCII(name, f)
	case ".tif", ".tiff":
		world, werr := openWorldFile(path)
		if werr != nil {
			return nil, werr
		}
		defer world.Close()
		r, err = ReadTIFF(name, f, world)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Create writes r to path as an ESRI ASCII grid.
func Create(path string, r *Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create raster: %w", err)
	}
	if err := WriteASCII(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
