// Package gis is the facade over spatial data access: raster loading with a
// shared cache, zone and factor polygons from shapefiles reprojected to the
// analysis CRS, zone masks and polygon overlays.
package gis

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ctessum/geom/proj"

	"github.com/JaimeStill/landflux/pkg/formatting"
	"github.com/JaimeStill/landflux/pkg/raster"
)

// Config configures the engine.
type Config struct {
	// CRS is the analysis coordinate reference system as a PROJ string.
	// Rasters are assumed to be in it; polygons are projected into it.
	CRS string
	// ClassNoData marks nodata in GeoTIFF class layers, which carry no
	// nodata tag the reader can see.
	ClassNoData float64
	// MaxRasterBytes rejects raster files larger than this; zero disables
	// the check.
	MaxRasterBytes int64
}

// Engine loads spatial inputs. Loaded rasters are shared and must be
// treated as read-only.
type Engine interface {
	// Raster loads the raster at path once and returns the cached grid afterwards.
	Raster(path string) (*raster.Raster, error)
	// Zones loads reporting zones from a shapefile.
	Zones(path, idField, nameField string, extra ...string) ([]Zone, error)
	// Features loads polygons with the named attribute fields.
	Features(path string, fields ...string) ([]*Feature, error)
}

type engine struct {
	cfg    Config
	sr     *proj.SR
	logger *slog.Logger

	mu      sync.Mutex
	rasters map[string]*raster.Raster
}

// New parses the analysis CRS and creates an engine.
func New(cfg Config, logger *slog.Logger) (Engine, error) {
	sr, err := proj.Parse(cfg.CRS)
	if err != nil {
		return nil, fmt.Errorf("%w: parse crs %q: %w", ErrProjection, cfg.CRS, err)
	}

	return &engine{
		cfg:     cfg,
		sr:      sr,
		logger:  logger.With("system", "gis"),
		rasters: make(map[string]*raster.Raster),
	}, nil
}

func (e *engine) Raster(path string) (*raster.Raster, error) {
	key := filepath.Clean(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if r, ok := e.rasters[key]; ok {
		return r, nil
	}

	info, err := os.Stat(key)
	if err != nil {
		return nil, fmt.Errorf("stat raster: %w", err)
	}
	if e.cfg.MaxRasterBytes > 0 && info.Size() > e.cfg.MaxRasterBytes {
		return nil, fmt.Errorf("%w: %s is %s, limit %s", ErrTooLarge, key,
			formatting.FormatBytes(info.Size(), 1), formatting.FormatBytes(e.cfg.MaxRasterBytes, 1))
	}

	opts := []raster.Option{raster.CRS(e.cfg.CRS)}
	switch filepath.Ext(key) {
	case ".tif", ".tiff", ".TIF", ".TIFF":
		opts = append(opts, raster.NoData(e.cfg.ClassNoData))
	}

	r, err := raster.Open(key, opts...)
	if err != nil {
		return nil, err
	}

	e.logger.Info("raster loaded",
		"path", key,
		"cols", r.Cols,
		"rows", r.Rows,
		"size", formatting.FormatBytes(info.Size(), 1),
	)

	e.rasters[key] = r
	return r, nil
}

func (e *engine) Zones(path, idField, nameField string, extra ...string) ([]Zone, error) {
	fields := append([]string{idField}, extra...)
	if nameField != "" {
		fields = append(fields, nameField)
	}

	features, err := e.Features(path, fields...)
	if err != nil {
		return nil, err
	}

	zones, err := ZonesFromFeatures(features, idField, nameField)
	if err != nil {
		return nil, fmt.Errorf("zones %s: %w", path, err)
	}

	e.logger.Info("zones loaded", "path", path, "count", len(zones))
	return zones, nil
}

func (e *engine) Features(path string, fields ...string) ([]*Feature, error) {
	features, assumed, err := readFeatures(path, e.sr, fields)
	if err != nil {
		return nil, err
	}
	if assumed {
		e.logger.Warn("shapefile has no projection file; assuming analysis crs", "path", path)
	}
	return features, nil
}
