// Package workflowtest builds a small on-disk analysis data set and a
// started runtime for driver tests.
package workflowtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/geom"

	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/infrastructure"
	"github.com/JaimeStill/landflux/internal/workflow"
	"github.com/JaimeStill/landflux/pkg/raster"
)

// Grid layout: 4x4 cells of 30 m with the lower-left corner at the origin.
const (
	Cols     = 4
	Rows     = 4
	CellSize = 30.0
	// Extent is the width and height of the grid in meters.
	Extent = Cols * CellSize
	// Period is the only configured analysis period.
	Period = "2016-2019"
)

const factors = `ForestAgeTypeRegion,Nonforest to Forest Removal Factor,Forests Remaining Forest Removal Factor,Fire Emissions Factor,Insect Emissions Factor,Harvest Emissions Factor
1,-5.5,-2.25,40,12,30
`

// Land cover at the start and end years. Row 0 is the northern row.
// Cells 0 and 1 convert to cropland and cell 2 to developed open space.
// Cell 14 remains cropland, cell 15 regrows to forest and the rest remains
// forest.
var (
	landCover2016 = []float64{
		41, 41, 41, 41,
		41, 41, 41, 41,
		41, 41, 41, 41,
		41, 41, 82, 82,
	}
	landCover2019 = []float64{
		82, 82, 21, 41,
		41, 41, 41, 41,
		41, 41, 41, 41,
		41, 41, 82, 41,
	}
	// Cell 5 burned.
	disturbance = []float64{
		0, 0, 0, 0,
		0, 10, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
)

func fill(v float64) []float64 {
	values := make([]float64, Cols*Rows)
	for i := range values {
		values[i] = v
	}
	return values
}

func writeGrid(t *testing.T, dir, name string, values []float64) {
	t.Helper()
	def := raster.Definition{Cols: Cols, Rows: Rows, CellSize: CellSize}
	r, err := raster.New(name, def, values)
	if err != nil {
		t.Fatalf("grid %s: %v", name, err)
	}
	if err := raster.Create(filepath.Join(dir, name), r.WithNoData(-9999)); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// DataDir writes the fixture rasters and forest factors into a temporary
// directory and returns it.
func DataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeGrid(t, dir, "lc_2016.asc", landCover2016)
	writeGrid(t, dir, "lc_2019.asc", landCover2019)
	writeGrid(t, dir, "forest_type.asc", fill(1))
	writeGrid(t, dir, "biomass.asc", fill(100))
	writeGrid(t, dir, "dom.asc", fill(20))
	writeGrid(t, dir, "soc.asc", fill(50))
	writeGrid(t, dir, "dist_2016_2019.asc", disturbance)
	writeGrid(t, dir, "canopy_2016.asc", fill(40))
	writeGrid(t, dir, "canopy_2019.asc", fill(30))
	writeGrid(t, dir, "plantable.asc", fill(1))

	if err := os.WriteFile(filepath.Join(dir, "factors.csv"), []byte(factors), 0644); err != nil {
		t.Fatalf("write factors: %v", err)
	}
	return dir
}

// Config writes the fixture data set and returns a finalized configuration
// pointing at it. Outputs go to the returned config's storage root and the
// results store is an SQLite file when withDB is set.
func Config(t *testing.T, withDB bool) *config.Config {
	t.Helper()
	data := DataDir(t)
	out := t.TempDir()

	content := fmt.Sprintf(`
version = "0.1.0"

[analysis]
data_dir = %q
region = "Test Region"
periods = [%q]
workers = 2
forest_factors = "factors.csv"
attribution = true

[layers]
land_cover = "lc_{year}.asc"
forest_type = "forest_type.asc"
carbon_biomass = "biomass.asc"
carbon_dead_organic_matter = "dom.asc"
carbon_soil_organic = "soc.asc"
disturbances = ["dist_{year1}_{year2}.asc"]
tree_canopy = "canopy_{year}.asc"
plantable = "plantable.asc"

[database]
enabled = %t
driver = "sqlite"
path = %q
auto_migrate = true

[storage]
provider = "local"
root = %q
`, data, Period, withDB, filepath.Join(out, "results.db"), filepath.Join(out, "outputs"))

	path := filepath.Join(out, "landflux.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

// Runtime starts infrastructure for cfg and builds a runtime over it. The
// infrastructure is shut down when the test ends.
func Runtime(t *testing.T, cfg *config.Config) *workflow.Runtime {
	t.Helper()

	rt, err := workflow.NewRuntime(cfg, Infrastructure(t, cfg))
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	return rt
}

// Infrastructure starts the infrastructure for cfg, logging to io.Discard,
// and shuts it down when the test ends.
func Infrastructure(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()

	infra, err := infrastructure.New(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("infrastructure: %v", err)
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { infra.Lifecycle.Shutdown(5 * time.Second) })
	return infra
}

// Square returns a size x size polygon with its lower-left corner at (x0, y0).
func Square(x0, y0, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}}
}

// Zone returns a square zone named after its id.
func Zone(id string, x0, y0, size float64) gis.Zone {
	return gis.Zone{ID: id, Name: id, Geometry: Square(x0, y0, size)}
}

// Zones returns one zone covering the whole grid and one that misses it.
func Zones() []gis.Zone {
	return []gis.Zone{
		Zone("06001", 0, 0, Extent),
		Zone("99999", 10*Extent, 10*Extent, Extent),
	}
}

// ReadOutput returns the published file at key under cfg's storage root.
func ReadOutput(t *testing.T, cfg *config.Config, key string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Storage.Root, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read output %s: %v", key, err)
	}
	return string(data)
}
