package workflow

import (
	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/raster"
)

// Layers reads the rasters a unit needs. canopy adds the tree canopy and
// plantable layers. Rasters are cached by the engine, so units sharing a
// period share grids.
func (rt *Runtime) Layers(unit accounting.Unit, canopy bool) (accounting.Layers, error) {
	lc := &rt.Config.Layers
	p := unit.Period

	var (
		layers accounting.Layers
		err    error
	)

	read := func(name, template string, year int) *raster.Raster {
		if err != nil || template == "" {
			return nil
		}
		path := rt.Config.Analysis.Path(config.Expand(template, p, year))
		r, rerr := rt.GIS.Raster(path)
		if rerr != nil {
			err = &accounting.InputError{Zone: unit.Zone.ID, Period: p, Layer: name, Err: rerr}
			return nil
		}
		return r
	}

	layers.From = read("land_cover_start", lc.LandCover, p.Start)
	layers.To = read("land_cover_end", lc.LandCover, p.End)
	layers.ForestType = read("forest_type", lc.ForestType, p.End)
	layers.Pools = accounting.Pools{
		Biomass:           read("carbon_biomass", lc.Biomass, p.Start),
		DeadOrganicMatter: read("carbon_dead_organic_matter", lc.DeadOrganicMatter, p.Start),
		SoilOrganic:       read("carbon_soil_organic", lc.SoilOrganic, p.Start),
	}
	for _, d := range lc.Disturbances {
		if r := read("disturbance", d, p.End); r != nil {
			layers.Disturbances = append(layers.Disturbances, r)
		}
	}

	if canopy {
		layers.CanopyFrom = read("canopy_start", lc.Canopy, p.Start)
		layers.CanopyTo = read("canopy_end", lc.Canopy, p.End)
		layers.Plantable = read("plantable", lc.Plantable, p.End)
	}

	for _, s := range []struct {
		name     string
		template string
		labels   *lookup.Table[int32, string]
	}{
		{"maturity", lc.Maturity, rt.Tables.Maturity},
		{"protection", lc.Protection, rt.Tables.Protection},
	} {
		if r := read(s.name, s.template, p.End); r != nil {
			layers.Strata = append(layers.Strata, accounting.Stratum{Name: s.name, Labels: s.labels, Raster: r})
		}
	}

	if err != nil {
		return accounting.Layers{}, err
	}
	return layers, nil
}
