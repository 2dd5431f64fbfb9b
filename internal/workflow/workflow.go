// Package workflow runs batches of (zone, period) units and publishes their
// outputs. It is shared by the forests and communities drivers.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/inventory"
	"github.com/JaimeStill/landflux/pkg/formatting"
)

// Outcome collects a batch. Results[i] belongs to Units[i] and is nil when
// the unit was skipped.
type Outcome struct {
	Units   []accounting.Unit
	Results []*accounting.Result
	Issues  []accounting.Issue
}

// Evaluated returns the results that were produced, in unit order.
func (o *Outcome) Evaluated() []*accounting.Result {
	out := make([]*accounting.Result, 0, len(o.Results))
	for _, r := range o.Results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Skipped returns the number of units without a result.
func (o *Outcome) Skipped() int {
	return len(o.Units) - len(o.Evaluated())
}

// Records returns the records of every evaluated unit, in unit order.
func (o *Outcome) Records() []accounting.Record {
	parts := make([][]accounting.Record, 0, len(o.Results))
	for _, r := range o.Evaluated() {
		parts = append(parts, r.Records)
	}
	return inventory.Merge(parts)
}

// Units pairs every zone with every period, zone-major.
func Units(zones []gis.Zone, periods []accounting.Period) []accounting.Unit {
	units := make([]accounting.Unit, 0, len(zones)*len(periods))
	for _, z := range zones {
		for _, p := range periods {
			units = append(units, accounting.Unit{Zone: z, Period: p})
		}
	}
	return units
}

// Execute evaluates units on a bounded errgroup. Input, lookup and zone
// failures skip the unit and are logged as issues. A computation failure
// cancels the batch; the returned Outcome still carries every issue
// collected so far, including the one that halted it.
func Execute(ctx context.Context, rt *Runtime, units []accounting.Unit, canopy bool) (*Outcome, error) {
	out := &Outcome{
		Units:   units,
		Results: make([]*accounting.Result, len(units)),
	}
	issues := make([][]accounting.Issue, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(rt.Config.Analysis.Workers, len(units)))

	for i, unit := range units {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			res, err := rt.evaluate(gctx, unit, canopy)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}

				issue := accounting.IssueFor(unit, err)
				issues[i] = append(issues[i], issue)

				if accounting.Halts(err) {
					rt.Logger.ErrorContext(gctx, "unit halted run",
						"zone", unit.Zone.ID,
						"period", unit.Period.String(),
						"error", err,
					)
					return err
				}

				rt.Logger.WarnContext(gctx, "unit skipped",
					"zone", unit.Zone.ID,
					"period", unit.Period.String(),
					"kind", issue.Kind,
					"error", err,
				)
				return nil
			}

			if res.UnfactoredCells > 0 {
				issues[i] = append(issues[i], accounting.Issue{
					Zone:    unit.Zone.ID,
					Period:  unit.Period.String(),
					Kind:    accounting.IssueWarning,
					Table:   rt.Tables.Forest.Name(),
					Message: fmt.Sprintf("%d forest cells have no forest type and were not factored", res.UnfactoredCells),
				})
			}

			out.Results[i] = res
			rt.Logger.InfoContext(gctx, "unit evaluated",
				"zone", unit.Zone.ID,
				"period", unit.Period.String(),
				"cells", res.Cells,
				"hectares", formatting.Number(res.Hectares, 1),
				"records", len(res.Records),
			)
			return nil
		})
	}

	err := g.Wait()

	out.Issues = inventory.Merge(issues)
	accounting.SortIssues(out.Issues)

	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	return out, nil
}

func (rt *Runtime) evaluate(ctx context.Context, unit accounting.Unit, canopy bool) (*accounting.Result, error) {
	layers, err := rt.Layers(unit, canopy)
	if err != nil {
		return nil, err
	}
	return accounting.Evaluate(ctx, unit, layers, rt.Tables, rt.Options)
}

func workerCount(workers, units int) int {
	return max(min(workers, units), 1)
}
