package results_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/internal/results"
	"github.com/JaimeStill/landflux/migrations"
	"github.com/JaimeStill/landflux/pkg/database"
	"github.com/JaimeStill/landflux/pkg/lifecycle"
	"github.com/JaimeStill/landflux/pkg/pagination"
)

func newStore(t *testing.T) results.System {
	t.Helper()

	cfg := database.Config{
		Enabled:     true,
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "results.db"),
		AutoMigrate: true,
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.New(&cfg, migrations.FS, logger)
	if err != nil {
		t.Fatalf("database: %v", err)
	}

	lc := lifecycle.New(context.Background())
	if err := db.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	t.Cleanup(func() { lc.Shutdown(5 * time.Second) })

	return results.New(db.Connection(), logger, pagination.Config{DefaultPageSize: 10, MaxPageSize: 50})
}

func run(command string, started time.Time) *results.Run {
	return &results.Run{
		Command:       command,
		Region:        "AZ",
		FactorVersion: "2024",
		OutputKey:     command + "/" + started.Format("20060102_150405"),
		Units:         2,
		Skipped:       1,
		StartedAt:     started,
		FinishedAt:    started.Add(time.Minute),
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	period := accounting.Period{Start: 2016, End: 2019}
	records := []accounting.Record{
		{
			Zone: "z1", Period: period, Source: accounting.LandCover,
			Category: accounting.ForestToCropland, FromCode: 41, ToCode: 82,
			Cells: 3, Hectares: 0.27, Factor: 110, Flux: 29.7, Kind: accounting.Emission,
		},
		{
			Zone: "z1", Period: period, Source: accounting.Disturbance,
			Category: accounting.ForestRemainingForest, Disturbance: lookup.Fire,
			Cells: 1, Hectares: 0.09, Factor: 40, Flux: 3.6, Kind: accounting.Emission,
		},
	}
	issues := []accounting.Issue{
		{Zone: "z2", Period: period.String(), Kind: accounting.IssueLookup, Table: "classes", Code: "7", Message: "missing"},
	}

	r := run("forests", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := store.SaveRun(ctx, r, records, issues); err != nil {
		t.Fatalf("save: %v", err)
	}
	if r.ID == uuid.Nil {
		t.Fatal("run id not assigned")
	}

	found, err := store.FindRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Command != "forests" || found.Units != 2 || found.Skipped != 1 {
		t.Errorf("found = %+v", found)
	}
	if found.Elapsed() != time.Minute {
		t.Errorf("elapsed = %v, want 1m", found.Elapsed())
	}

	got, err := store.ListRecords(ctx, r.ID)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Source != accounting.LandCover || got[0].Category != accounting.ForestToCropland || got[0].Flux != 29.7 {
		t.Errorf("first record = %+v", got[0])
	}
	if got[1].Disturbance != lookup.Fire || got[1].Period != period {
		t.Errorf("second record = %+v", got[1])
	}

	logged, err := store.ListIssues(ctx, r.ID)
	if err != nil {
		t.Fatalf("issues: %v", err)
	}
	if len(logged) != 1 || logged[0] != issues[0] {
		t.Errorf("issues = %+v", logged)
	}
}

func TestSaveRunDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	r := run("forests", time.Now())
	if err := store.SaveRun(ctx, r, nil, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	again := run("forests", time.Now())
	again.ID = r.ID
	if err := store.SaveRun(ctx, again, nil, nil); !errors.Is(err, results.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestFindRunNotFound(t *testing.T) {
	store := newStore(t)

	if _, err := store.FindRun(context.Background(), uuid.New()); !errors.Is(err, results.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"forests", "communities", "forests"} {
		if err := store.SaveRun(ctx, run(cmd, base.Add(time.Duration(i)*time.Hour)), nil, nil); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	page, err := store.ListRuns(ctx, pagination.PageRequest{}, results.Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 3 {
		t.Fatalf("page = %+v", page)
	}
	if !page.Data[0].StartedAt.After(page.Data[2].StartedAt) {
		t.Error("runs should be newest first")
	}

	forests := "forests"
	page, err = store.ListRuns(ctx, pagination.PageRequest{PageSize: 1}, results.Filters{Command: &forests})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if page.Total != 2 || len(page.Data) != 1 || page.TotalPages != 2 {
		t.Errorf("filtered page = %+v", page)
	}

	search := "COMMUN"
	page, err = store.ListRuns(ctx, pagination.PageRequest{Search: &search}, results.Filters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 || page.Data[0].Command != "communities" {
		t.Errorf("search page = %+v", page)
	}

	since := base.Add(time.Hour)
	page, err = store.ListRuns(ctx, pagination.PageRequest{}, results.Filters{Since: &since})
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("since page total = %d, want 2", page.Total)
	}
}
