// Package inventory summarises accounting results into GHG inventory tables:
// the category inventory, the IPCC rollup, land-cover transition matrices in
// hectares and the tree canopy summary.
package inventory

import (
	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/lookup"
)

// Inventory groups.
const (
	ForestChange          = "Forest Change"
	ForestRemainingForest = "Forest Remaining Forest"
	TreesOutsideForest    = "Trees Outside Forest"
)

// Row directions.
const (
	Emissions = "Emissions"
	Removals  = "Removals"
)

// Row is one line of the GHG inventory.
type Row struct {
	Category  string  `json:"category"`
	Type      string  `json:"type"`
	Direction string  `json:"direction"`
	Hectares  float64 `json:"hectares"`
	Flux      float64 `json:"flux"`
}

// Emissions returns the flux of an emissions row, else 0.
func (r Row) Emissions() float64 {
	if r.Direction == Emissions {
		return r.Flux
	}
	return 0
}

// Removals returns the flux of a removals row, else 0.
func (r Row) Removals() float64 {
	if r.Direction == Removals {
		return r.Flux
	}
	return 0
}

// TOF holds the trees-outside-forest factors of a community, in t C/ha for
// emissions and t C/ha/yr for removals.
type TOF struct {
	EmissionFactor float64 `json:"emission_factor"`
	RemovalFactor  float64 `json:"removal_factor"`
	EmissionSource string  `json:"emission_source,omitempty"`
	RemovalSource  string  `json:"removal_source,omitempty"`
}

type line struct {
	category  string
	typ       string
	direction string
	match     func(accounting.Record) bool
}

func landCover(c accounting.Category) func(accounting.Record) bool {
	return func(r accounting.Record) bool {
		return r.Source == accounting.LandCover && r.Category == c
	}
}

func disturbance(d lookup.Disturbance) func(accounting.Record) bool {
	return func(r accounting.Record) bool {
		return r.Source == accounting.Disturbance && r.Disturbance == d
	}
}

var lines = []line{
	{ForestChange, "To Cropland", Emissions, landCover(accounting.ForestToCropland)},
	{ForestChange, "To Grassland", Emissions, landCover(accounting.ForestToGrassland)},
	{ForestChange, "To Settlement", Emissions, landCover(accounting.ForestToSettlement)},
	{ForestChange, "To Wetland", Emissions, landCover(accounting.ForestToWetland)},
	{ForestChange, "To Other", Emissions, landCover(accounting.ForestToOtherLand)},
	{ForestChange, "Reforestation (Non-Forest to Forest)", Removals, landCover(accounting.NonforestToForest)},
	{ForestRemainingForest, "Undisturbed", Removals, landCover(accounting.ForestRemainingForest)},
	{ForestRemainingForest, "Fire", Emissions, disturbance(lookup.Fire)},
	{ForestRemainingForest, "Insect/Disease", Emissions, disturbance(lookup.InsectDamage)},
	{ForestRemainingForest, "Harvest/Other", Emissions, disturbance(lookup.Harvest)},
}

// Summarize builds the inventory of one result. With tof set the two
// trees-outside-forest rows are appended, computed from the canopy of
// nonforest-remaining-nonforest land.
func Summarize(res *accounting.Result, tof *TOF, carbonToCO2 float64) []Row {
	rows := make([]Row, 0, len(lines)+2)
	for _, l := range lines {
		row := Row{Category: l.category, Type: l.typ, Direction: l.direction}
		for _, rec := range res.Records {
			if l.match(rec) {
				row.Hectares += rec.Hectares
				row.Flux += rec.Flux
			}
		}
		rows = append(rows, row)
	}

	if tof == nil {
		return rows
	}

	var canopy, loss float64
	for _, rec := range res.Records {
		if rec.Source == accounting.LandCover && rec.Category == accounting.NonforestToNonforest {
			canopy += rec.CanopyHa
			loss += rec.CanopyLossHa
		}
	}

	years := float64(res.Unit.Period.Years())
	return append(rows,
		Row{
			Category:  TreesOutsideForest,
			Type:      "Tree canopy loss",
			Direction: Emissions,
			Hectares:  loss,
			Flux:      loss * tof.EmissionFactor * carbonToCO2 / years,
		},
		Row{
			Category:  TreesOutsideForest,
			Type:      "Canopy maintained/gained",
			Direction: Removals,
			Hectares:  canopy,
			Flux:      canopy * tof.RemovalFactor * carbonToCO2,
		},
	)
}

// Flux is the gross and net flux of an inventory.
type Flux struct {
	GrossEmissions float64 `json:"gross_emissions"`
	GrossRemovals  float64 `json:"gross_removals"`
	Net            float64 `json:"net"`
}

// GrossNet sums inventory rows by direction.
func GrossNet(rows []Row) Flux {
	var f Flux
	for _, r := range rows {
		f.GrossEmissions += r.Emissions()
		f.GrossRemovals += r.Removals()
	}
	f.Net = f.GrossEmissions + f.GrossRemovals
	return f
}

// Tagged is an inventory row labelled with its zone and period.
type Tagged struct {
	Zone   string `json:"zone"`
	Period string `json:"period"`
	Row
}

// Tag labels rows with the unit they were computed for.
func Tag(unit accounting.Unit, rows []Row) []Tagged {
	out := make([]Tagged, len(rows))
	for i, r := range rows {
		out[i] = Tagged{Zone: unit.Zone.ID, Period: unit.Period.String(), Row: r}
	}
	return out
}

// Merge concatenates per-unit tables in unit order.
func Merge[T any](parts [][]T) []T {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
