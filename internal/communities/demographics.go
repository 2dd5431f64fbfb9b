package communities

import (
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/report"
)

// Demographics apportions census polygon attributes to communities.
type Demographics struct {
	fields []string
	index  *gis.Index
}

// Profile is the demographic estimate of one community.
type Profile struct {
	Zone string
	// Sources is the number of census polygons that overlap the zone.
	Sources int
	Values  map[string]float64
}

// NewDemographics indexes census polygons carrying the numeric fields.
func NewDemographics(features []*gis.Feature, fields []string) *Demographics {
	return &Demographics{fields: fields, index: gis.NewIndex(features)}
}

// Fields returns the apportioned attribute names.
func (d *Demographics) Fields() []string {
	return d.fields
}

// Apportion estimates zone's demographics. Each census polygon contributes
// its values in proportion to the share of its area inside the zone.
// Blank or non-numeric values contribute nothing.
func (d *Demographics) Apportion(zone gis.Zone) Profile {
	p := Profile{Zone: zone.ID, Values: make(map[string]float64, len(d.fields))}
	for _, field := range d.fields {
		p.Values[field] = 0
	}

	for _, f := range d.index.Intersecting(zone.Geometry.Bounds()) {
		total := f.Area()
		if total <= 0 {
			continue
		}
		overlap := gis.OverlapArea(zone.Geometry, f.Polygonal)
		if overlap <= 0 {
			continue
		}

		p.Sources++
		share := min(overlap/total, 1)
		for _, field := range d.fields {
			if v, ok := fieldValue(f, field); ok {
				p.Values[field] += share * v
			}
		}
	}
	return p
}

// Table tabulates profiles, one row per community.
func (d *Demographics) Table(profiles []Profile) report.Table {
	t := report.Table{
		Title:  "Demographics",
		Header: append([]string{"zone", "census_polygons"}, d.fields...),
	}
	for _, p := range profiles {
		row := []string{p.Zone, report.Int(float64(p.Sources))}
		for _, field := range d.fields {
			row = append(row, report.Float(p.Values[field], 1))
		}
		t.Append(row...)
	}
	return t
}
