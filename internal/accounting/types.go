package accounting

import (
	"cmp"
	"maps"
	"slices"

	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/raster"
	"github.com/JaimeStill/landflux/pkg/zonal"
)

// CarbonToCO2 is the molecular weight ratio of CO2 to carbon.
const CarbonToCO2 = 44.0 / 12.0

// Unit is one (zone, year-pair) evaluation.
type Unit struct {
	Zone   gis.Zone
	Period Period
}

// Pools are carbon density layers (t C/ha). A nil pool is not tracked.
type Pools struct {
	Biomass           *raster.Raster
	DeadOrganicMatter *raster.Raster
	SoilOrganic       *raster.Raster
}

// Stratum is an optional labelled layer that forest area is tabulated by.
type Stratum struct {
	Name   string
	Labels *lookup.Table[int32, string]
	Raster *raster.Raster
}

// Layers are the aligned rasters read by a unit. From and To are required;
// everything else is optional.
type Layers struct {
	From         *raster.Raster
	To           *raster.Raster
	ForestType   *raster.Raster
	Pools        Pools
	Disturbances []*raster.Raster
	CanopyFrom   *raster.Raster
	CanopyTo     *raster.Raster
	Plantable    *raster.Raster
	Strata       []Stratum
}

type namedLayer struct {
	name string
	r    *raster.Raster
}

func (l Layers) named() []namedLayer {
	out := []namedLayer{
		{"land_cover_end", l.To},
		{"forest_type", l.ForestType},
		{"carbon_biomass", l.Pools.Biomass},
		{"carbon_dead_organic_matter", l.Pools.DeadOrganicMatter},
		{"carbon_soil_organic", l.Pools.SoilOrganic},
		{"canopy_start", l.CanopyFrom},
		{"canopy_end", l.CanopyTo},
		{"plantable", l.Plantable},
	}
	for _, d := range l.Disturbances {
		out = append(out, namedLayer{"disturbance", d})
	}
	for _, s := range l.Strata {
		out = append(out, namedLayer{s.Name, s.Raster})
	}
	return out
}

// Options are the numeric parameters of an evaluation.
type Options struct {
	// CarbonToCO2 converts tonnes of carbon to tonnes of CO2.
	CarbonToCO2 float64
	// Priority orders disturbance types when several claim one cell.
	Priority []lookup.Disturbance
	// CanopyScale converts canopy layer values to a cover fraction.
	CanopyScale float64
	// Attribution requests a per-cell attribution grid in the result.
	Attribution bool
}

// DefaultOptions returns the methodology defaults.
func DefaultOptions() Options {
	return Options{
		CarbonToCO2: CarbonToCO2,
		Priority:    slices.Clone(lookup.DefaultPriority),
		CanopyScale: 0.01,
	}
}

// Transition is a pair of land-cover codes.
type Transition struct {
	From int32 `json:"from"`
	To   int32 `json:"to"`
}

// Matrix counts cells per transition.
type Matrix map[Transition]int64

// Total returns the number of counted cells.
func (m Matrix) Total() int64 {
	var n int64
	for _, c := range m {
		n += c
	}
	return n
}

// Transitions returns the transitions present, ordered by from then to.
func (m Matrix) Transitions() []Transition {
	return slices.SortedFunc(maps.Keys(m), func(a, b Transition) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
}

// Record is one row of the result: the aggregate of a zone's cells sharing a
// transition or a disturbance type within one period.
type Record struct {
	Zone        string             `json:"zone"`
	Period      Period             `json:"period"`
	Source      Source             `json:"source"`
	Category    Category           `json:"category"`
	Disturbance lookup.Disturbance `json:"disturbance,omitempty"`
	FromCode    int32              `json:"from_code"`
	ToCode      int32              `json:"to_code"`
	FromClass   string             `json:"from_class"`
	ToClass     string             `json:"to_class"`
	FromParent  lookup.ParentClass `json:"from_parent"`
	ToParent    lookup.ParentClass `json:"to_parent"`
	Cells       int64              `json:"cells"`
	Hectares    float64            `json:"hectares"`
	// Factor is the effective flux per hectare (t CO2e/ha/yr).
	Factor float64 `json:"factor"`
	// Flux is the annual flux in t CO2e/yr; emissions positive.
	Flux         float64 `json:"flux"`
	Kind         Kind    `json:"kind"`
	CanopyHa     float64 `json:"canopy_ha"`
	CanopyLossHa float64 `json:"canopy_loss_ha"`
	PlantableHa  float64 `json:"plantable_ha"`
}

// ForestTypeArea is forest activity within one forest age-type region.
type ForestTypeArea struct {
	Region      int32              `json:"region"`
	Source      Source             `json:"source"`
	Category    Category           `json:"category"`
	Disturbance lookup.Disturbance `json:"disturbance,omitempty"`
	Hectares    float64            `json:"hectares"`
	Flux        float64            `json:"flux"`
}

// StratumArea is forest area by stratum label and category.
type StratumArea struct {
	Stratum  string   `json:"stratum"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
	Hectares float64  `json:"hectares"`
}

// PoolDensity summarizes one carbon density layer (t C/ha) over the zone.
type PoolDensity struct {
	Pool string `json:"pool"`
	zonal.Stats
}

// Result is the outcome of evaluating one unit.
type Result struct {
	Unit        Unit             `json:"-"`
	Matrix      Matrix           `json:"-"`
	Records     []Record         `json:"records"`
	ForestTypes []ForestTypeArea `json:"forest_types"`
	Strata      []StratumArea    `json:"strata"`
	CellSize    float64          `json:"cell_size"`
	// Cells is the number of zone cells with land cover in both years.
	Cells int64 `json:"cells"`
	// ExcludedCells are zone cells with nodata in either land-cover year.
	ExcludedCells int64 `json:"excluded_cells"`
	// UnfactoredCells needed a forest factor but had no forest type.
	UnfactoredCells int64          `json:"unfactored_cells"`
	Hectares        float64        `json:"hectares"`
	DisturbedHa     float64        `json:"disturbed_ha"`
	LandCoverHa     float64        `json:"land_cover_ha"`
	// Density holds one entry per supplied carbon pool layer.
	Density     []PoolDensity  `json:"density"`
	Attribution *raster.Raster `json:"-"`
}

// Emissions returns the sum of positive record fluxes.
func (r *Result) Emissions() float64 {
	var sum float64
	for _, rec := range r.Records {
		if rec.Kind == Emission {
			sum += rec.Flux
		}
	}
	return sum
}

// Removals returns the sum of negative record fluxes.
func (r *Result) Removals() float64 {
	var sum float64
	for _, rec := range r.Records {
		if rec.Kind == Removal {
			sum += rec.Flux
		}
	}
	return sum
}
