package zonal_test

import (
	"math"
	"testing"

	"github.com/JaimeStill/landflux/pkg/raster"
	"github.com/JaimeStill/landflux/pkg/zonal"
)

func TestAreaHectares(t *testing.T) {
	tests := []struct {
		name     string
		cells    int64
		cellSize float64
		want     float64
	}{
		{"nlcd cell", 1, 30, 0.09},
		{"hectare cells", 9, 100, 9},
		{"empty", 0, 30, 0},
		{"linear", 1000, 30, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := zonal.AreaHectares(tt.cells, tt.cellSize)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	def := raster.Definition{Cols: 2, Rows: 2, CellSize: 30}
	r, err := raster.New("carbon", def, []float64{1, 2, -1, 4})
	if err != nil {
		t.Fatal(err)
	}
	r.WithNoData(-1)

	stats := zonal.Aggregate(r, []int{0, 1, 2})
	if stats.NoData {
		t.Fatal("expected data")
	}
	if stats.Count != 2 || stats.Sum != 3 || stats.Mean != 1.5 {
		t.Errorf("got %+v, want count 2 sum 3 mean 1.5", stats)
	}
}

func TestAggregateNoOverlap(t *testing.T) {
	def := raster.Definition{Cols: 1, Rows: 2, CellSize: 30}
	r, err := raster.New("carbon", def, []float64{-1, -1})
	if err != nil {
		t.Fatal(err)
	}
	r.WithNoData(-1)

	tests := []struct {
		name string
		mask []int
	}{
		{"empty mask", nil},
		{"all nodata", []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := zonal.Aggregate(r, tt.mask)
			if !stats.NoData {
				t.Errorf("got %+v, want NoData", stats)
			}
		})
	}
}
