package communities

import (
	"math"
	"strconv"

	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/inventory"
)

// Factor sources recorded when no polygon applies.
const (
	UnknownState = "UnknownState"
	UnknownPlace = "UnknownPlace"
	// Configured marks factors taken from the configuration.
	Configured = "configured"
)

// Factors resolves the trees-outside-forest factors of a community.
type Factors struct {
	cfg    config.CommunitiesConfig
	states *gis.Index
	places []*gis.Feature
}

// NewFactors indexes the state removal and place emission polygons. Either
// set may be empty.
func NewFactors(cfg config.CommunitiesConfig, states, places []*gis.Feature) *Factors {
	return &Factors{
		cfg:    cfg,
		states: gis.NewIndex(states),
		places: places,
	}
}

// Resolve returns the factors for zone. A configured factor wins. Otherwise
// the removal factor comes from the state polygon with the largest overlap
// and the emission factor from the place polygon nearest the zone centroid.
// Polygons whose factor is blank or has the wrong sign are ignored; without
// a usable polygon the fallback factor applies.
func (f *Factors) Resolve(zone gis.Zone) inventory.TOF {
	var tof inventory.TOF

	switch {
	case f.cfg.RemovalFactor != nil:
		tof.RemovalFactor, tof.RemovalSource = *f.cfg.RemovalFactor, Configured
	default:
		tof.RemovalFactor, tof.RemovalSource = f.removal(zone)
	}

	switch {
	case f.cfg.EmissionFactor != nil:
		tof.EmissionFactor, tof.EmissionSource = *f.cfg.EmissionFactor, Configured
	default:
		tof.EmissionFactor, tof.EmissionSource = f.emission(zone)
	}

	return tof
}

func (f *Factors) removal(zone gis.Zone) (float64, string) {
	var (
		best    *gis.Feature
		factor  float64
		largest float64
	)

	for _, state := range f.states.Intersecting(zone.Geometry.Bounds()) {
		v, ok := fieldValue(state, f.cfg.StateFactorField)
		if !ok || v > 0 {
			continue
		}
		if area := gis.OverlapArea(zone.Geometry, state.Polygonal); area > largest {
			best, factor, largest = state, v, area
		}
	}

	if best == nil {
		return f.cfg.FallbackRemoval, UnknownState
	}
	return factor, f.name(best)
}

func (f *Factors) emission(zone gis.Zone) (float64, string) {
	center := gis.Centroid(zone.Geometry)

	var (
		best    *gis.Feature
		factor  float64
		nearest = math.Inf(1)
	)

	for _, place := range f.places {
		v, ok := fieldValue(place, f.cfg.PlaceFactorField)
		if !ok || v < 0 {
			continue
		}
		if d := gis.Distance(place.Polygonal, center); d < nearest {
			best, factor, nearest = place, v, d
		}
	}

	if best == nil {
		return f.cfg.FallbackEmission, UnknownPlace
	}
	return factor, f.name(best)
}

func (f *Factors) name(feature *gis.Feature) string {
	if n := feature.Field(f.cfg.FactorNameField); n != "" {
		return n
	}
	return "unnamed"
}

// fieldValue parses a numeric attribute. Blank and non-finite values are
// treated as absent.
func fieldValue(feature *gis.Feature, field string) (float64, bool) {
	raw := feature.Field(field)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
