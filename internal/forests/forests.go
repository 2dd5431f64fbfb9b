// Package forests runs the forest carbon analysis: every zone over every
// period summarized into the forest GHG inventory.
package forests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/inventory"
	"github.com/JaimeStill/landflux/internal/report"
	"github.com/JaimeStill/landflux/internal/workflow"
)

// Command names the forests run in output folders and the results store.
const Command = "forests"

// ErrNoZones indicates that no zone shapefile is configured.
var ErrNoZones = errors.New("zones path not configured")

// Run loads the configured zones and analyzes them.
func Run(ctx context.Context, rt *workflow.Runtime) (*workflow.Summary, error) {
	zc := rt.Config.Zones
	if zc.Path == "" {
		return nil, ErrNoZones
	}

	zones, err := rt.GIS.Zones(rt.Config.Analysis.Path(zc.Path), zc.IDField, zc.NameField, zc.Fields...)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	return Analyze(ctx, rt, zones)
}

// Analyze evaluates zones over every configured period and publishes the
// combined inventory, per-unit detail, configuration snapshot and issue
// log. When the batch halts the issue log is still published and the halt
// error is returned.
func Analyze(ctx context.Context, rt *workflow.Runtime, zones []gis.Zone) (*workflow.Summary, error) {
	started := time.Now()

	periods, err := rt.Config.Analysis.PeriodList()
	if err != nil {
		return nil, err
	}
	units := workflow.Units(zones, periods)
	if len(units) == 0 {
		return nil, workflow.ErrNoUnits
	}

	logger := rt.Logger.With("command", Command)
	logger.InfoContext(ctx, "run started", "zones", len(zones), "periods", len(periods))

	pub := rt.NewPublisher(Command, started)

	out, err := workflow.Execute(ctx, rt, units, false)
	if err != nil {
		if perr := pub.Issues(context.WithoutCancel(ctx), out.Issues); perr != nil {
			logger.ErrorContext(ctx, "issue log not published", "error", perr)
		}
		return nil, err
	}

	if err := publish(ctx, rt, pub, out); err != nil {
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

// Inventory returns the forest inventory rows of every evaluated unit,
// tagged with the unit, in unit order.
func Inventory(out *workflow.Outcome, carbonToCO2 float64) []inventory.Tagged {
	parts := make([][]inventory.Tagged, 0, len(out.Results))
	for _, res := range out.Evaluated() {
		parts = append(parts, inventory.Tag(res.Unit, inventory.Summarize(res, nil, carbonToCO2)))
	}
	return inventory.Merge(parts)
}

func publish(ctx context.Context, rt *workflow.Runtime, pub *workflow.Publisher, out *workflow.Outcome) error {
	combined := Inventory(out, rt.Options.CarbonToCO2)
	if err := pub.Table(ctx, "combined_results.csv", report.Combined(combined)); err != nil {
		return err
	}

	for _, res := range out.Evaluated() {
		if err := detail(ctx, pub, res); err != nil {
			return err
		}
	}

	if err := pub.Attribution(ctx, out.Evaluated()); err != nil {
		return err
	}
	if err := pub.Config(ctx, rt); err != nil {
		return err
	}
	return pub.Issues(ctx, out.Issues)
}

func detail(ctx context.Context, pub *workflow.Publisher, res *accounting.Result) error {
	name := workflow.UnitName(res.Unit)

	if err := pub.Table(ctx, "landuse_"+name+".csv", report.Records(res.Records)); err != nil {
		return err
	}

	tables := []report.Table{report.ForestTypes(res)}
	if len(res.Strata) > 0 {
		tables = append(tables, report.Strata(res))
	}
	if len(res.Density) > 0 {
		tables = append(tables, report.Density(res))
	}
	return pub.Tables(ctx, "forest_type_"+name+".csv", tables...)
}
