package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/results"
	"github.com/JaimeStill/landflux/pkg/formatting"
	"github.com/JaimeStill/landflux/pkg/pagination"
)

func listRuns(args []string) error {
	flags, path := newFlagSet("runs")
	var (
		page     = flags.Int("page", 1, "Page number")
		pageSize = flags.Int("page-size", 0, "Runs per page (configured default when 0)")
		search   = flags.String("search", "", "Search text")
		sort     = flags.String("sort", "", "Sort fields, e.g. -StartedAt,Region")
		command  = flags.String("command", "", "Only runs of this command")
		region   = flags.String("region", "", "Only runs for this region")
		factors  = flags.String("factor-version", "", "Only runs using this factor version")
		since    = flags.String("since", "", "Only runs started on or after this date (YYYY-MM-DD)")
		id       = flags.String("id", "", "Show one run with its issue log")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Shutdown(cfg.ShutdownTimeoutDuration())

	if err := app.Start(false); err != nil {
		return err
	}
	store, err := app.Results()
	if err != nil {
		return err
	}

	if *id != "" {
		runID, err := uuid.Parse(*id)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		return showRun(ctx, os.Stdout, store, runID)
	}

	filters := results.Filters{
		Command:       optional(*command),
		Region:        optional(*region),
		FactorVersion: optional(*factors),
	}
	if *since != "" {
		t, err := time.ParseInLocation(time.DateOnly, *since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date: %w", err)
		}
		filters.Since = &t
	}

	req := pagination.NewPageRequest(*page, *pageSize, *search, *sort, cfg.Runs.Paging())
	result, err := store.ListRuns(ctx, req, filters)
	if err != nil {
		return err
	}

	printRuns(os.Stdout, result)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printRuns(w io.Writer, result *pagination.PageResult[results.Run]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMAND\tREGION\tFACTORS\tUNITS\tSKIPPED\tSTARTED\tELAPSED")
	for _, r := range result.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Command, r.Region, r.FactorVersion,
			formatting.Integer(float64(r.Units)),
			formatting.Integer(float64(r.Skipped)),
			r.StartedAt.Local().Format(time.DateTime),
			r.Elapsed().Round(time.Millisecond),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d (%d runs)\n", result.Page, result.TotalPages, result.Total)
}

func showRun(ctx context.Context, w io.Writer, store results.System, id uuid.UUID) error {
	run, err := store.FindRun(ctx, id)
	if err != nil {
		return err
	}
	records, err := store.ListRecords(ctx, id)
	if err != nil {
		return err
	}
	issues, err := store.ListIssues(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "run:      %s\n", run.ID)
	fmt.Fprintf(w, "command:  %s\n", run.Command)
	fmt.Fprintf(w, "region:   %s\n", run.Region)
	fmt.Fprintf(w, "factors:  %s\n", run.FactorVersion)
	fmt.Fprintf(w, "output:   %s\n", run.OutputKey)
	fmt.Fprintf(w, "units:    %d (%d skipped)\n", run.Units, run.Skipped)
	fmt.Fprintf(w, "records:  %s\n", formatting.Integer(float64(len(records))))
	fmt.Fprintf(w, "started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "elapsed:  %s\n", run.Elapsed().Round(time.Millisecond))

	if len(issues) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ZONE\tPERIOD\tKIND\tMESSAGE")
	for _, i := range issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", i.Zone, i.Period, i.Kind, i.Message)
	}
	return tw.Flush()
}
