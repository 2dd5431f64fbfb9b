package gis

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/JaimeStill/landflux/pkg/zonal"
)

// Feature is a polygon with its attribute values.
type Feature struct {
	geom.Polygonal
	Fields map[string]string
}

// Field returns the trimmed value of attribute name.
func (f *Feature) Field(name string) string {
	return f.Fields[name]
}

// Zone is a named reporting polygon in the analysis CRS.
type Zone struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Geometry   geom.Polygonal    `json:"-"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Hectares returns the polygon area in hectares.
func (z Zone) Hectares() float64 {
	return z.Geometry.Area() / zonal.SquareMetersPerHectare
}

// Index is an R-tree over features.
type Index struct {
	tree *rtree.Rtree
	size int
}

// NewIndex builds a spatial index over features.
func NewIndex(features []*Feature) *Index {
	tree := rtree.NewTree(25, 50)
	for _, f := range features {
		tree.Insert(f)
	}
	return &Index{tree: tree, size: len(features)}
}

// Len returns the number of indexed features.
func (x *Index) Len() int {
	return x.size
}

// Intersecting returns the features whose bounds intersect b.
func (x *Index) Intersecting(b *geom.Bounds) []*Feature {
	hits := x.tree.SearchIntersect(b)
	out := make([]*Feature, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*Feature))
	}
	return out
}

// readFeatures decodes every polygon of the shapefile at path, transformed
// into dst. When the shapefile carries no projection file its coordinates
// are taken to already be in dst; assumed reports that case.
func readFeatures(path string, dst *proj.SR, fields []string) (features []*Feature, assumed bool, err error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, false, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	var trans proj.Transformer
	if src, err := dec.SR(); err == nil {
		trans, err = src.NewTransform(dst)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s: %w", ErrProjection, path, err)
		}
	} else {
		assumed = true
	}

	for row := 0; ; row++ {
		g, values, more := dec.DecodeRowFields(fields...)
		if !more {
			break
		}

		if trans != nil {
			g, err = g.Transform(trans)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %s row %d: %w", ErrProjection, path, row, err)
			}
		}

		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s row %d is %T", ErrNotPolygonal, path, row, g)
		}

		clean := make(map[string]string, len(values))
		for k, v := range values {
			clean[k] = strings.TrimSpace(strings.Trim(v, "\x00"))
		}

		features = append(features, &Feature{Polygonal: poly, Fields: clean})
	}

	if err := dec.Error(); err != nil {
		return nil, false, fmt.Errorf("decode shapefile %s: %w", path, err)
	}

	return features, assumed, nil
}

// ZonesFromFeatures builds zones keyed by idField. Names come from
// nameField when set, else the id. Every other field is kept as an
// attribute.
func ZonesFromFeatures(features []*Feature, idField, nameField string) ([]Zone, error) {
	seen := make(map[string]bool, len(features))
	zones := make([]Zone, 0, len(features))

	for row, f := range features {
		id := f.Field(idField)
		if id == "" {
			return nil, fmt.Errorf("%w: row %d has no %s", ErrMissingField, row, idField)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateZone, id)
		}
		seen[id] = true

		name := id
		if nameField != "" && f.Field(nameField) != "" {
			name = f.Field(nameField)
		}

		attrs := make(map[string]string, len(f.Fields))
		for k, v := range f.Fields {
			if k != idField && k != nameField {
				attrs[k] = v
			}
		}

		zones = append(zones, Zone{
			ID:         id,
			Name:       name,
			Geometry:   f.Polygonal,
			Attributes: attrs,
		})
	}

	return zones, nil
}
