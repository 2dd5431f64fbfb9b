package gis_test

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ctessum/geom"

	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/pkg/raster"
)

const albers = "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +ellps=GRS80 +units=m +no_defs"

func square(x0, y0, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}}
}

func TestContains(t *testing.T) {
	outer := geom.Polygon{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}},
	}

	tests := []struct {
		name string
		p    geom.Point
		want bool
	}{
		{"interior", geom.Point{X: 1, Y: 1}, true},
		{"edge", geom.Point{X: 10, Y: 5}, true},
		{"vertex", geom.Point{X: 0, Y: 0}, true},
		{"outside", geom.Point{X: 11, Y: 5}, false},
		{"hole", geom.Point{X: 5, Y: 5}, false},
		{"hole edge", geom.Point{X: 4, Y: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gis.Contains(outer, tt.p); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	poly := square(0, 0, 10)

	if d := gis.Distance(poly, geom.Point{X: 5, Y: 5}); d != 0 {
		t.Errorf("inside: got %v, want 0", d)
	}
	if d := gis.Distance(poly, geom.Point{X: 13, Y: 14}); math.Abs(d-5) > 1e-9 {
		t.Errorf("corner: got %v, want 5", d)
	}
	if d := gis.Distance(poly, geom.Point{X: 5, Y: -2}); math.Abs(d-2) > 1e-9 {
		t.Errorf("edge: got %v, want 2", d)
	}
}

func TestCentroid(t *testing.T) {
	holed := geom.Polygon{square(0, 0, 10)[0], square(0, 0, 5)[0]}
	multi := geom.MultiPolygon{square(0, 0, 10), square(20, 0, 10)}

	tests := []struct {
		name string
		poly geom.Polygonal
		x, y float64
	}{
		{"square", square(0, 0, 10), 5, 5},
		{"hole", holed, 17.5 / 3, 17.5 / 3},
		{"multi", multi, 15, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := gis.Centroid(tt.poly)
			if math.Abs(c.X-tt.x) > 1e-9 || math.Abs(c.Y-tt.y) > 1e-9 {
				t.Errorf("got (%v, %v), want (%v, %v)", c.X, c.Y, tt.x, tt.y)
			}
		})
	}
}

func TestMask(t *testing.T) {
	def := raster.Definition{Cols: 3, Rows: 3, OriginX: 0, OriginY: 0, CellSize: 100}

	tests := []struct {
		name string
		poly geom.Polygon
		want []int
	}{
		{"full grid", square(0, 0, 300), []int{0, 1, 2, 3, 4, 5, 6, 7, 8}},
		{"lower left cell", square(0, 0, 100), []int{6}},
		{"centre on edge", square(50, 50, 100), []int{3, 4, 6, 7}},
		{"outside grid", square(1000, 1000, 100), nil},
		{"partial overlap", square(250, -100, 200), []int{8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gis.Mask(def, tt.poly)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlapArea(t *testing.T) {
	a := square(0, 0, 10)
	b := square(5, 5, 10)
	far := square(100, 100, 1)

	if got := gis.OverlapArea(a, b); math.Abs(got-25) > 1e-6 {
		t.Errorf("overlap: got %v, want 25", got)
	}
	if got := gis.OverlapArea(a, far); got != 0 {
		t.Errorf("disjoint: got %v, want 0", got)
	}
}

func TestIndexIntersecting(t *testing.T) {
	features := []*gis.Feature{
		{Polygonal: square(0, 0, 10), Fields: map[string]string{"id": "a"}},
		{Polygonal: square(20, 0, 10), Fields: map[string]string{"id": "b"}},
		{Polygonal: square(40, 0, 10), Fields: map[string]string{"id": "c"}},
	}
	idx := gis.NewIndex(features)

	hits := idx.Intersecting(square(5, 2, 20).Bounds())

	var ids []string
	for _, h := range hits {
		ids = append(ids, h.Field("id"))
	}
	slices.Sort(ids)

	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", ids)
	}
	if idx.Len() != 3 {
		t.Errorf("len: got %d, want 3", idx.Len())
	}
}

func TestZonesFromFeatures(t *testing.T) {
	features := []*gis.Feature{
		{Polygonal: square(0, 0, 100), Fields: map[string]string{"GEOID": "01", "NAME": "Alpha", "STATE": "AL"}},
		{Polygonal: square(100, 0, 100), Fields: map[string]string{"GEOID": "02", "NAME": ""}},
	}

	zones, err := gis.ZonesFromFeatures(features, "GEOID", "NAME")
	if err != nil {
		t.Fatalf("zones failed: %v", err)
	}

	if zones[0].Name != "Alpha" || zones[1].Name != "02" {
		t.Errorf("names: got %s %s, want Alpha 02", zones[0].Name, zones[1].Name)
	}
	if zones[0].Attributes["STATE"] != "AL" {
		t.Errorf("attributes: got %v", zones[0].Attributes)
	}
	if math.Abs(zones[0].Hectares()-1) > 1e-9 {
		t.Errorf("hectares: got %v, want 1", zones[0].Hectares())
	}
}

func TestZonesFromFeaturesErrors(t *testing.T) {
	tests := []struct {
		name     string
		features []*gis.Feature
		want     error
	}{
		{
			name: "duplicate",
			features: []*gis.Feature{
				{Polygonal: square(0, 0, 1), Fields: map[string]string{"GEOID": "01"}},
				{Polygonal: square(1, 0, 1), Fields: map[string]string{"GEOID": "01"}},
			},
			want: gis.ErrDuplicateZone,
		},
		{
			name: "missing id",
			features: []*gis.Feature{
				{Polygonal: square(0, 0, 1), Fields: map[string]string{}},
			},
			want: gis.ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gis.ZonesFromFeatures(tt.features, "GEOID", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEngineRasterCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nlcd_2019.asc")
	src := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 30\n41 82\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	eng, err := gis.New(gis.Config{CRS: albers}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	first, err := eng.Raster(path)
	if err != nil {
		t.Fatalf("raster failed: %v", err)
	}
	if first.CRS != albers {
		t.Errorf("crs: got %q, want analysis crs", first.CRS)
	}

	second, err := eng.Raster(filepath.Join(dir, ".", "nlcd_2019.asc"))
	if err != nil {
		t.Fatalf("raster failed: %v", err)
	}
	if first != second {
		t.Error("expected the cached raster")
	}
}

func TestEngineRasterTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.asc")
	src := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 30\n41 82\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	eng, err := gis.New(gis.Config{CRS: albers, MaxRasterBytes: 10}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if _, err := eng.Raster(path); !errors.Is(err, gis.ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}
