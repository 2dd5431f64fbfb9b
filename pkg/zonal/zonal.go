// Package zonal provides area conversion and zonal aggregation over cell
// index masks.
package zonal

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SquareMetersPerHectare converts square CRS units (metres) to hectares.
const SquareMetersPerHectare = 10_000.0

// CellHectares returns the area of one cell in hectares.
func CellHectares(cellSize float64) float64 {
	return cellSize * cellSize / SquareMetersPerHectare
}

// AreaHectares returns the area covered by cells cells of side cellSize.
func AreaHectares(cells int64, cellSize float64) float64 {
	return float64(cells) * CellHectares(cellSize)
}

// Layer is the value source read by Aggregate.
type Layer interface {
	Value(i int) (float64, bool)
}

// Stats summarizes the valid values of a layer inside a zone. NoData is true
// when no valid cell overlaps the zone, in which case Sum and Mean are zero
// and carry no meaning.
type Stats struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	NoData bool    `json:"nodata"`
}

// Aggregate sums and averages the valid cells of layer listed in mask.
func Aggregate(layer Layer, mask []int) Stats {
	values := make([]float64, 0, len(mask))
	for _, i := range mask {
		if v, ok := layer.Value(i); ok {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		return Stats{NoData: true}
	}

	return Stats{
		Count: len(values),
		Sum:   floats.Sum(values),
		Mean:  stat.Mean(values, nil),
	}
}
