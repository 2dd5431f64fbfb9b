package accounting

import (
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/raster"
)

// Attribution grid codes.
const (
	AttributionNoData       = -9999
	AttributionNone         = 0
	AttributionEmission     = 1
	AttributionRemoval      = 2
	AttributionFire         = 3
	AttributionInsectDamage = 4
	AttributionHarvest      = 5
)

func disturbanceCode(d lookup.Disturbance) float64 {
	switch d {
	case lookup.Fire:
		return AttributionFire
	case lookup.InsectDamage:
		return AttributionInsectDamage
	case lookup.Harvest:
		return AttributionHarvest
	}
	return AttributionEmission
}

func landCoverCode(category Category, weight float64) float64 {
	switch {
	case category == Unclassified, category == NonforestToNonforest:
		return AttributionNone
	case weight > 0:
		return AttributionEmission
	case weight < 0:
		return AttributionRemoval
	}
	return AttributionNone
}

// attributionGrid lays codes for the masked cells onto the smallest window
// of src covering the mask. Cells outside the zone are nodata.
func attributionGrid(src *raster.Raster, mask []int, codes []float64) (*raster.Raster, error) {
	r0, c0 := src.RowCol(mask[0])
	r1, c1 := r0, c0
	for _, i := range mask[1:] {
		row, col := src.RowCol(i)
		r0, r1 = min(r0, row), max(r1, row)
		c0, c1 = min(c0, col), max(c1, col)
	}

	base := raster.Filled("attribution", src.Definition, AttributionNoData).WithNoData(AttributionNoData)
	for n, i := range mask {
		base.Values[i] = codes[n]
	}
	return base.Window(r0, r1+1, c0, c1+1)
}
