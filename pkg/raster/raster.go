// Package raster provides single-band grids with georeferencing, readers for
// ESRI ASCII grids and GeoTIFF class layers, and grid alignment checks.
package raster

import (
	"fmt"
	"math"
	"strings"
)

// alignTolerance bounds the origin and cell-size difference still considered
// the same grid, in CRS units.
const alignTolerance = 1e-6

// Definition describes the shape and georeferencing of a grid. Row 0 is the
// northernmost row; the origin is the lower-left corner of the grid.
type Definition struct {
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	CellSize float64 `json:"cell_size"`
	CRS      string  `json:"crs"`
}

// Len returns the number of cells.
func (d Definition) Len() int {
	return d.Cols * d.Rows
}

// Index returns the flat index of (row, col).
func (d Definition) Index(row, col int) int {
	return row*d.Cols + col
}

// RowCol returns the row and column of flat index i.
func (d Definition) RowCol(i int) (int, int) {
	return i / d.Cols, i % d.Cols
}

// Top returns the y coordinate of the northern edge.
func (d Definition) Top() float64 {
	return d.OriginY + float64(d.Rows)*d.CellSize
}

// CellCenter returns the CRS coordinates of the centre of cell i.
func (d Definition) CellCenter(i int) (float64, float64) {
	row, col := d.RowCol(i)
	x := d.OriginX + (float64(col)+0.5)*d.CellSize
	y := d.Top() - (float64(row)+0.5)*d.CellSize
	return x, y
}

// Bounds returns the grid extent as minX, minY, maxX, maxY.
func (d Definition) Bounds() (float64, float64, float64, float64) {
	return d.OriginX, d.OriginY, d.OriginX + float64(d.Cols)*d.CellSize, d.Top()
}

// Validate checks that the definition describes a usable grid.
func (d Definition) Validate() error {
	if d.Cols <= 0 || d.Rows <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidShape, d.Cols, d.Rows)
	}
	if d.CellSize <= 0 || math.IsNaN(d.CellSize) || math.IsInf(d.CellSize, 0) {
		return fmt.Errorf("%w: cell size %v", ErrInvalidShape, d.CellSize)
	}
	return nil
}

// Aligned reports whether o shares this grid: same shape, origin, cell size
// and CRS. The returned error names the first differing property.
func (d Definition) Aligned(o Definition) error {
	switch {
	case d.Cols != o.Cols || d.Rows != o.Rows:
		return fmt.Errorf("%w: shape %dx%d vs %dx%d", ErrMisaligned, d.Cols, d.Rows, o.Cols, o.Rows)
	case math.Abs(d.CellSize-o.CellSize) > alignTolerance:
		return fmt.Errorf("%w: cell size %v vs %v", ErrMisaligned, d.CellSize, o.CellSize)
	case math.Abs(d.OriginX-o.OriginX) > alignTolerance || math.Abs(d.OriginY-o.OriginY) > alignTolerance:
		return fmt.Errorf("%w: origin (%v, %v) vs (%v, %v)", ErrMisaligned, d.OriginX, d.OriginY, o.OriginX, o.OriginY)
	case normalizeCRS(d.CRS) != normalizeCRS(o.CRS):
		return fmt.Errorf("%w: crs %q vs %q", ErrMisaligned, d.CRS, o.CRS)
	}
	return nil
}

func normalizeCRS(crs string) string {
	return strings.Join(strings.Fields(crs), " ")
}

// Raster is a single-band grid of values. Class layers hold integer codes
// stored as float64.
type Raster struct {
	Definition
	Name      string
	Values    []float64
	NoData    float64
	HasNoData bool
}

// New creates a raster over def with the given values.
func New(name string, def Definition, values []float64) (*Raster, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(values) != def.Len() {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidShape, name, len(values), def.Len())
	}
	return &Raster{
		Definition: def,
		Name:       name,
		Values:     values,
	}, nil
}

// Filled creates a raster over def with every cell set to v.
func Filled(name string, def Definition, v float64) *Raster {
	values := make([]float64, def.Len())
	for i := range values {
		values[i] = v
	}
	return &Raster{Definition: def, Name: name, Values: values}
}

// WithNoData sets the nodata marker and returns r.
func (r *Raster) WithNoData(v float64) *Raster {
	r.NoData = v
	r.HasNoData = true
	return r
}

// Valid reports whether cell i holds data.
func (r *Raster) Valid(i int) bool {
	v := r.Values[i]
	if math.IsNaN(v) {
		return false
	}
	return !r.HasNoData || v != r.NoData
}

// Value returns the value of cell i and whether it holds data.
func (r *Raster) Value(i int) (float64, bool) {
	if !r.Valid(i) {
		return 0, false
	}
	return r.Values[i], true
}

// Class returns the integer code of cell i and whether it holds data.
// Values that do not round into the int32 range hold no class.
func (r *Raster) Class(i int) (int32, bool) {
	v, ok := r.Value(i)
	if !ok {
		return 0, false
	}
	v = math.Round(v)
	if math.IsInf(v, 0) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}

// Window returns a copy of the sub-grid covering rows [r0, r1) and cols
// [c0, c1).
func (r *Raster) Window(r0, r1, c0, c1 int) (*Raster, error) {
	if r0 < 0 || c0 < 0 || r1 > r.Rows || c1 > r.Cols || r0 >= r1 || c0 >= c1 {
		return nil, fmt.Errorf("%w: window rows [%d,%d) cols [%d,%d)", ErrInvalidShape, r0, r1, c0, c1)
	}

	def := Definition{
		Cols:     c1 - c0,
		Rows:     r1 - r0,
		OriginX:  r.OriginX + float64(c0)*r.CellSize,
		OriginY:  r.Top() - float64(r1)*r.CellSize,
		CellSize: r.CellSize,
		CRS:      r.CRS,
	}

	values := make([]float64, 0, def.Len())
	for row := r0; row < r1; row++ {
		start := r.Index(row, c0)
		values = append(values, r.Values[start:start+def.Cols]...)
	}

	return &Raster{
		Definition: def,
		Name:       r.Name,
		Values:     values,
		NoData:     r.NoData,
		HasNoData:  r.HasNoData,
	}, nil
}
