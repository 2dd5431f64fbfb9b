package report

import (
	"fmt"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/inventory"
	"github.com/JaimeStill/landflux/pkg/zonal"
)

// Records tabulates land-use result records.
func Records(records []accounting.Record) Table {
	t := Table{
		Title: "Land use records",
		Header: []string{
			"zone", "period", "source", "category", "disturbance",
			"from_code", "to_code", "from_class", "to_class", "from_parent", "to_parent",
			"cells", "hectares", "factor", "flux", "kind",
			"canopy_ha", "canopy_loss_ha", "plantable_ha",
		},
	}
	for _, r := range records {
		t.Append(
			r.Zone, r.Period.String(), string(r.Source), string(r.Category), string(r.Disturbance),
			code(r, r.FromCode), code(r, r.ToCode), r.FromClass, r.ToClass, string(r.FromParent), string(r.ToParent),
			fmt.Sprint(r.Cells), Float(r.Hectares, 2), Float(r.Factor, 4), Float(r.Flux, 2), string(r.Kind),
			Float(r.CanopyHa, 2), Float(r.CanopyLossHa, 2), Float(r.PlantableHa, 2),
		)
	}
	return t
}

// code leaves transition codes blank for disturbance records.
func code(r accounting.Record, c int32) string {
	if r.Source == accounting.Disturbance {
		return ""
	}
	return fmt.Sprint(c)
}

// ForestTypes tabulates forest activity by forest type region.
func ForestTypes(res *accounting.Result) Table {
	t := Table{
		Title:  "Forest type results",
		Header: []string{"zone", "period", "region", "source", "category", "disturbance", "hectares", "flux"},
	}
	for _, f := range res.ForestTypes {
		t.Append(
			res.Unit.Zone.ID, res.Unit.Period.String(), fmt.Sprint(f.Region),
			string(f.Source), string(f.Category), string(f.Disturbance),
			Float(f.Hectares, 2), Float(f.Flux, 2),
		)
	}
	return t
}

// NoData marks statistics of a zone with no valid cells.
const NoData = "nodata"

// Density tabulates the carbon density pools of a result: valid cells, mean
// density (t C/ha) and stock (t C) per pool.
func Density(res *accounting.Result) Table {
	t := Table{
		Title:  "Carbon density",
		Header: []string{"zone", "period", "pool", "cells", "mean_t_c_ha", "stock_t_c"},
	}
	cellHa := zonal.CellHectares(res.CellSize)
	for _, d := range res.Density {
		mean, stock := NoData, NoData
		if !d.NoData {
			mean = Float(d.Mean, 2)
			stock = Float(d.Sum*cellHa, 2)
		}
		t.Append(res.Unit.Zone.ID, res.Unit.Period.String(), d.Pool, fmt.Sprint(d.Count), mean, stock)
	}
	return t
}

// Strata tabulates forest area by stratum label.
func Strata(res *accounting.Result) Table {
	t := Table{
		Title:  "Forest area by stratum",
		Header: []string{"zone", "period", "stratum", "label", "category", "hectares"},
	}
	for _, s := range res.Strata {
		t.Append(res.Unit.Zone.ID, res.Unit.Period.String(), s.Stratum, s.Label, string(s.Category), Float(s.Hectares, 2))
	}
	return t
}

// Inventory tabulates the GHG inventory with emissions and removals split
// into columns and a closing Total row.
func Inventory(rows []inventory.Row) Table {
	t := Table{
		Title:  "GHG Inventory with separated emissions and removals (t CO2e/yr)",
		Header: []string{"Category", "Type", "Emissions/Removals", "Area (ha, total)", "Emissions", "Removals"},
	}
	var emissions, removals float64
	for _, r := range rows {
		emissions += r.Emissions()
		removals += r.Removals()
		t.Append(r.Category, r.Type, r.Direction, Int(r.Hectares), Int(r.Emissions()), Int(r.Removals()))
	}
	t.Append(inventory.Total, "", "", "N/A", Int(emissions), Int(removals))
	return t
}

// IPCC tabulates the simplified IPCC report.
func IPCC(rows []inventory.IPCCRow) Table {
	t := Table{
		Title:  "Simplified report: IPCC categories",
		Header: []string{"Category", "Net Flux (t CO2e/yr)"},
	}
	for _, r := range rows {
		t.Append(r.Category, Int(r.Flux))
	}
	return t
}

// Matrix tabulates a transition matrix in whole hectares.
func Matrix(m *inventory.TransitionMatrix, period accounting.Period) Table {
	t := Table{
		Title:  fmt.Sprintf("Land Use Change Matrix (hectares)\n%d: Across / %d: Down", period.End, period.Start),
		Header: append(append([]string{""}, m.Labels...), inventory.Total),
	}
	labels := append(append([]string{}, m.Labels...), inventory.Total)
	for i, label := range labels {
		row := []string{label}
		for j := range labels {
			row = append(row, Int(m.Data.At(i, j)))
		}
		t.Append(row...)
	}
	return t
}

// Canopy tabulates the tree canopy summary.
func Canopy(rows []inventory.CanopyRow) Table {
	t := Table{
		Title: "Tree Canopy Summary",
		Header: []string{
			"Category", "TreeCanopy_HA", "TreeCanopyLoss_HA", "Plantable_HA",
			"Percent Tree Cover", "Percent Plantable",
		},
	}
	for _, r := range rows {
		t.Append(
			string(r.Category), Int(r.CanopyHa), Int(r.CanopyLossHa), Int(r.PlantableHa),
			Int(r.PercentCover), Int(r.PercentPlantable),
		)
	}
	return t
}

// Combined tabulates tagged inventory rows from many units.
func Combined(rows []inventory.Tagged) Table {
	t := Table{
		Title: "Combined results",
		Header: []string{
			"zone", "period", "Category", "Type", "Emissions/Removals",
			"Area (ha, total)", "GHG flux (t CO2e/yr)",
		},
	}
	for _, r := range rows {
		t.Append(r.Zone, r.Period, r.Category, r.Type, r.Direction, Int(r.Hectares), Int(r.Flux))
	}
	return t
}

// FluxRow is the gross and net flux of one unit.
type FluxRow struct {
	Zone   string
	Period string
	inventory.Flux
}

// Fluxes tabulates per-unit gross and net flux.
func Fluxes(rows []FluxRow) Table {
	t := Table{
		Title:  "Gross and net flux",
		Header: []string{"zone", "period", "gross_emissions", "gross_removals", "net_flux"},
	}
	for _, r := range rows {
		t.Append(r.Zone, r.Period, Float(r.GrossEmissions, 2), Float(r.GrossRemovals, 2), Float(r.Net, 2))
	}
	return t
}

// Issues tabulates the issue log.
func Issues(issues []accounting.Issue) Table {
	t := Table{Title: "Issues", Header: accounting.IssueHeader}
	for _, i := range issues {
		t.Append(i.Row()...)
	}
	return t
}
