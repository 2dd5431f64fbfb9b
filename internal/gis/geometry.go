package gis

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/JaimeStill/landflux/pkg/raster"
)

// edgeTolerance is the distance, in CRS units, within which a point counts
// as lying on a polygon edge.
const edgeTolerance = 1e-9

// Contains reports whether p lies inside poly or on its boundary. Rings are
// combined with the even-odd rule, so holes are excluded.
func Contains(poly geom.Polygonal, p geom.Point) bool {
	inside := false
	for _, pg := range poly.Polygons() {
		for _, ring := range pg {
			n := len(ring)
			for i, j := 0, n-1; i < n; j, i = i, i+1 {
				a, b := ring[i], ring[j]
				if segmentDistance(p, a, b) <= edgeTolerance {
					return true
				}
				if (a.Y > p.Y) != (b.Y > p.Y) {
					x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
					if p.X < x {
						inside = !inside
					}
				}
			}
		}
	}
	return inside
}

// Distance returns the distance from p to poly; zero when p is inside.
func Distance(poly geom.Polygonal, p geom.Point) float64 {
	if Contains(poly, p) {
		return 0
	}

	best := math.Inf(1)
	for _, pg := range poly.Polygons() {
		for _, ring := range pg {
			n := len(ring)
			for i, j := 0, n-1; i < n; j, i = i, i+1 {
				best = min(best, segmentDistance(p, ring[i], ring[j]))
			}
		}
	}
	return best
}

func segmentDistance(p, a, b geom.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = max(0, min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// Mask returns the flat indices, in ascending order, of the cells of def
// whose centre lies inside or on the edge of poly.
func Mask(def raster.Definition, poly geom.Polygonal) []int {
	b := poly.Bounds()
	if b == nil {
		return nil
	}

	top := def.Top()
	c0 := max(0, int(math.Floor((b.Min.X-def.OriginX)/def.CellSize)))
	c1 := min(def.Cols-1, int(math.Floor((b.Max.X-def.OriginX)/def.CellSize)))
	r0 := max(0, int(math.Floor((top-b.Max.Y)/def.CellSize)))
	r1 := min(def.Rows-1, int(math.Floor((top-b.Min.Y)/def.CellSize)))

	var cells []int
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			i := def.Index(row, col)
			x, y := def.CellCenter(i)
			if Contains(poly, geom.Point{X: x, Y: y}) {
				cells = append(cells, i)
			}
		}
	}
	return cells
}

// OverlapArea returns the area of the intersection of a and b.
func OverlapArea(a, b geom.Polygonal) float64 {
	if !a.Bounds().Overlaps(b.Bounds()) {
		return 0
	}
	inter := a.Intersection(b)
	if inter == nil {
		return 0
	}
	return inter.Area()
}

// Centroid returns the area-weighted centroid of poly. The first ring of
// each polygon is its outer boundary and later rings are holes.
func Centroid(poly geom.Polygonal) geom.Point {
	var sx, sy, total float64
	for _, pg := range poly.Polygons() {
		for k, ring := range pg {
			a, cx, cy := ringMoments(ring)
			if k > 0 {
				a = -a
			}
			sx += a * cx
			sy += a * cy
			total += a
		}
	}
	if total == 0 {
		b := poly.Bounds()
		return geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
	}
	return geom.Point{X: sx / total, Y: sy / total}
}

// ringMoments returns the unsigned area and centroid of a ring.
func ringMoments(ring []geom.Point) (float64, float64, float64) {
	var a, cx, cy float64
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		cross := ring[j].X*ring[i].Y - ring[i].X*ring[j].Y
		a += cross
		cx += (ring[j].X + ring[i].X) * cross
		cy += (ring[j].Y + ring[i].Y) * cross
	}
	if a == 0 {
		return 0, 0, 0
	}
	cx /= 3 * a
	cy /= 3 * a
	return math.Abs(a) / 2, cx, cy
}
