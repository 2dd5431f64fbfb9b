// Package communities runs the community analysis: land-use change with
// tree canopy, trees-outside-forest factors and demographics for every
// community zone over every period.
package communities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/inventory"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/internal/report"
	"github.com/JaimeStill/landflux/internal/workflow"
)

// Command names the communities run in output folders and the results store.
const Command = "communities"

// ErrNoZones indicates that no community shapefile is configured.
var ErrNoZones = errors.New("community zones path not configured")

// Inputs are the polygons a communities run reads.
type Inputs struct {
	Zones  []gis.Zone
	States []*gis.Feature
	Places []*gis.Feature
	Census []*gis.Feature
}

// Community is the summary of one evaluated community and period.
type Community struct {
	Result    *accounting.Result
	TOF       inventory.TOF
	Inventory []inventory.Row
	IPCC      []inventory.IPCCRow
	Matrix    *inventory.TransitionMatrix
	Canopy    []inventory.CanopyRow
	Flux      inventory.Flux
	// Warnings flags class codes the transition matrix could not label.
	Warnings []accounting.Issue
}

// Summarize builds the community summary of res with the given factors.
func Summarize(res *accounting.Result, tof inventory.TOF, classes *lookup.Table[int32, string], carbonToCO2 float64) *Community {
	rows := inventory.Summarize(res, &tof, carbonToCO2)
	matrix := inventory.Transitions(res, classes, lookup.ClassOrder)

	var warnings []accounting.Issue
	for _, code := range matrix.Unmapped {
		warnings = append(warnings, accounting.Issue{
			Zone:    res.Unit.Zone.ID,
			Period:  res.Unit.Period.String(),
			Kind:    accounting.IssueWarning,
			Table:   classes.Name(),
			Code:    strconv.Itoa(int(code)),
			Message: "land-cover code has no class label; tabulated as " + lookup.Unclassified,
		})
	}

	return &Community{
		Result:    res,
		TOF:       tof,
		Inventory: rows,
		IPCC:      inventory.IPCC(rows),
		Matrix:    matrix,
		Canopy:    inventory.Canopy(res),
		Flux:      inventory.GrossNet(rows),
		Warnings:  warnings,
	}
}

// Tables returns the summary tables in report order.
func (c *Community) Tables() []report.Table {
	return []report.Table{
		report.Matrix(c.Matrix, c.Result.Unit.Period),
		report.Canopy(c.Canopy),
		report.Inventory(c.Inventory),
		report.IPCC(c.IPCC),
	}
}

// LoadInputs reads the community zones and the factor and census polygons
// the configuration names. Factor polygons are skipped when the matching
// factor is configured.
func LoadInputs(rt *workflow.Runtime) (Inputs, error) {
	cc := rt.Config.Communities
	a := &rt.Config.Analysis

	var (
		in  Inputs
		err error
	)

	if cc.Zones.Path == "" {
		return in, ErrNoZones
	}
	in.Zones, err = rt.GIS.Zones(a.Path(cc.Zones.Path), cc.Zones.IDField, cc.Zones.NameField, cc.Zones.Fields...)
	if err != nil {
		return in, fmt.Errorf("load community zones: %w", err)
	}

	if cc.RemovalFactor == nil && cc.States != "" {
		in.States, err = rt.GIS.Features(a.Path(cc.States), cc.StateFactorField, cc.FactorNameField)
		if err != nil {
			return in, fmt.Errorf("load state factors: %w", err)
		}
	}

	if cc.EmissionFactor == nil && cc.Places != "" {
		in.Places, err = rt.GIS.Features(a.Path(cc.Places), cc.PlaceFactorField, cc.FactorNameField)
		if err != nil {
			return in, fmt.Errorf("load place factors: %w", err)
		}
	}

	if cc.Demographics != "" {
		in.Census, err = rt.GIS.Features(a.Path(cc.Demographics), cc.DemographicFields...)
		if err != nil {
			return in, fmt.Errorf("load demographics: %w", err)
		}
	}

	return in, nil
}

// Run loads the configured inputs and analyzes them.
func Run(ctx context.Context, rt *workflow.Runtime) (*workflow.Summary, error) {
	in, err := LoadInputs(rt)
	if err != nil {
		return nil, err
	}
	return Analyze(ctx, rt, in)
}

// Analyze evaluates every community over every configured period with the
// tree canopy layers and publishes the per-community summaries, the master
// inventory, flux and factor tables, demographics, the configuration
// snapshot and the issue log. When the batch halts the issue log is still
// published and the halt error is returned.
func Analyze(ctx context.Context, rt *workflow.Runtime, in Inputs) (*workflow.Summary, error) {
	started := time.Now()
	cc := rt.Config.Communities

	periods, err := rt.Config.Analysis.PeriodList()
	if err != nil {
		return nil, err
	}
	units := workflow.Units(in.Zones, periods)
	if len(units) == 0 {
		return nil, workflow.ErrNoUnits
	}

	logger := rt.Logger.With("command", Command)
	logger.InfoContext(ctx, "run started",
		"communities", len(in.Zones),
		"periods", len(periods),
		"states", len(in.States),
		"places", len(in.Places),
		"census", len(in.Census),
	)

	pub := rt.NewPublisher(Command, started)

	out, err := workflow.Execute(ctx, rt, units, true)
	if err != nil {
		if perr := pub.Issues(context.WithoutCancel(ctx), out.Issues); perr != nil {
			logger.ErrorContext(ctx, "issue log not published", "error", perr)
		}
		return nil, err
	}

	factors := NewFactors(cc, in.States, in.Places)
	var communities []*Community
	for _, res := range out.Evaluated() {
		tof := factors.Resolve(res.Unit.Zone)
		logger.InfoContext(ctx, "factors resolved",
			"zone", res.Unit.Zone.ID,
			"period", res.Unit.Period.String(),
			"removal_factor", tof.RemovalFactor,
			"removal_source", tof.RemovalSource,
			"emission_factor", tof.EmissionFactor,
			"emission_source", tof.EmissionSource,
		)
		c := Summarize(res, tof, rt.Tables.Classes, rt.Options.CarbonToCO2)
		for _, w := range c.Warnings {
			logger.WarnContext(ctx, "unmapped land-cover code",
				"zone", w.Zone,
				"period", w.Period,
				"code", w.Code,
			)
		}
		out.Issues = append(out.Issues, c.Warnings...)
		communities = append(communities, c)
	}

	var demo *Demographics
	if len(cc.DemographicFields) > 0 && len(in.Census) > 0 {
		demo = NewDemographics(in.Census, cc.DemographicFields)
	}

	if err := publish(ctx, rt, pub, communities, in.Zones, demo); err != nil {
		return nil, err
	}
	if err := pub.Attribution(ctx, out.Evaluated()); err != nil {
		return nil, err
	}
	if err := pub.Config(ctx, rt); err != nil {
		return nil, err
	}
	if err := pub.Issues(ctx, out.Issues); err != nil {
		return nil, err
	}

	run, err := rt.Save(ctx, Command, started, pub, out)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	summary := workflow.Summarize(pub, out, run)
	logger.InfoContext(ctx, "run complete",
		"folder", summary.Folder,
		"units", summary.Units,
		"skipped", summary.Skipped,
		"issues", summary.Issues,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return summary, nil
}

func publish(ctx context.Context, rt *workflow.Runtime, pub *workflow.Publisher, communities []*Community, zones []gis.Zone, demo *Demographics) error {
	var (
		master  [][]inventory.Tagged
		fluxes  []report.FluxRow
		factors = report.Table{
			Title:  "Trees outside forest factors",
			Header: []string{"zone", "period", "emission_factor", "emission_source", "removal_factor", "removal_source"},
		}
	)

	for _, c := range communities {
		unit := c.Result.Unit
		name := workflow.UnitName(unit)
		tables := c.Tables()

		if err := pub.Tables(ctx, "summary_"+name+".csv", tables...); err != nil {
			return err
		}

		sheets := append(tables, report.Records(c.Result.Records))
		if err := pub.Publish(ctx, "summary_"+name+".xlsx", workflow.ContentXLSX, func(w io.Writer) error {
			return report.WriteWorkbook(w, sheets...)
		}); err != nil {
			return err
		}

		if rt.Config.Communities.Chart {
			if err := chart(ctx, pub, c, name); err != nil {
				return err
			}
		}

		master = append(master, inventory.Tag(unit, c.Inventory))
		fluxes = append(fluxes, report.FluxRow{Zone: unit.Zone.ID, Period: unit.Period.String(), Flux: c.Flux})
		factors.Append(
			unit.Zone.ID, unit.Period.String(),
			report.Float(c.TOF.EmissionFactor, 4), c.TOF.EmissionSource,
			report.Float(c.TOF.RemovalFactor, 4), c.TOF.RemovalSource,
		)
	}

	if err := pub.Table(ctx, "master_inventory.csv", report.Combined(inventory.Merge(master))); err != nil {
		return err
	}
	if err := pub.Table(ctx, "gross_net_flux.csv", report.Fluxes(fluxes)); err != nil {
		return err
	}
	if err := pub.Table(ctx, "tof_factors.csv", factors); err != nil {
		return err
	}

	if demo == nil {
		return nil
	}
	profiles := make([]Profile, len(zones))
	for i, z := range zones {
		profiles[i] = demo.Apportion(z)
	}
	return pub.Table(ctx, "demographics.csv", demo.Table(profiles))
}

func chart(ctx context.Context, pub *workflow.Publisher, c *Community, name string) error {
	unit := c.Result.Unit
	title := fmt.Sprintf("%s %s GHG flux", unit.Zone.Name, unit.Period)

	p, err := report.Chart(title, c.Inventory)
	if err != nil {
		return err
	}
	return pub.Publish(ctx, "chart_"+name+".png", workflow.ContentPNG, func(w io.Writer) error {
		return report.WriteChart(w, p)
	})
}
