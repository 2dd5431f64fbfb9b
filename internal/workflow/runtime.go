package workflow

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/infrastructure"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/internal/results"
	"github.com/JaimeStill/landflux/pkg/storage"
)

// Runtime bundles the dependencies that the analysis drivers require.
// It is built once per run; every field is read-only while units evaluate.
type Runtime struct {
	Config  *config.Config
	GIS     gis.Engine
	Tables  *lookup.Tables
	Options accounting.Options
	Storage storage.System
	// Results is nil when the results store is disabled.
	Results results.System
	Logger  *slog.Logger
}

// NewRuntime loads and validates the lookup tables and creates the GIS
// engine. Infrastructure must already be started.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	a := &cfg.Analysis

	tables, err := lookup.Load(a.Path(a.Lookups), a.Path(a.ForestFactors))
	if err != nil {
		return nil, fmt.Errorf("load lookups: %w", err)
	}
	if err := tables.Validate(a.ExpectedCodes); err != nil {
		return nil, fmt.Errorf("validate lookups: %w", err)
	}

	opts, err := a.Options()
	if err != nil {
		return nil, err
	}

	engine, err := gis.New(gis.Config{
		CRS:            a.CRS,
		ClassNoData:    a.ClassNoData,
		MaxRasterBytes: a.MaxRasterBytes(),
	}, infra.Logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:  cfg,
		GIS:     engine,
		Tables:  tables,
		Options: opts,
		Storage: infra.Storage,
		Logger:  infra.Logger.With("system", "workflow"),
	}
	if infra.Database != nil {
		rt.Results = results.New(infra.Database.Connection(), infra.Logger, cfg.Runs.Paging())
	}

	rt.Logger.Info("runtime ready",
		"region", a.Region,
		"factor_version", a.FactorVersion,
		"forest_regions", tables.Forest.Len(),
		"workers", a.Workers,
	)
	return rt, nil
}
