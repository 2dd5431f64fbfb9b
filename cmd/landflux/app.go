package main

import (
	"context"
	"errors"
	"time"

	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/infrastructure"
	"github.com/JaimeStill/landflux/internal/results"
	"github.com/JaimeStill/landflux/internal/workflow"
)

var errResultsDisabled = errors.New("results store disabled: set database.enabled")

type App struct {
	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	runtime *workflow.Runtime
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	infra, err := infrastructure.New(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}

	infra.Logger.Info(
		"landflux initialized",
		"version", cfg.Version,
		"env", cfg.Env(),
		"region", cfg.Analysis.Region,
	)

	return &App{cfg: cfg, infra: infra}, nil
}

// Start runs the startup hooks and, when analysis is true, loads the lookup
// tables and GIS engine.
func (a *App) Start(analysis bool) error {
	if err := a.infra.Start(); err != nil {
		return err
	}
	a.infra.Logger.Info("all subsystems ready")

	if !analysis {
		return nil
	}

	rt, err := workflow.NewRuntime(a.cfg, a.infra)
	if err != nil {
		return err
	}
	a.runtime = rt
	return nil
}

// Results returns the results store, failing when it is disabled.
func (a *App) Results() (results.System, error) {
	if a.infra.Database == nil {
		return nil, errResultsDisabled
	}
	return results.New(a.infra.Database.Connection(), a.infra.Logger, a.cfg.Runs.Paging()), nil
}

func (a *App) Shutdown(timeout time.Duration) error {
	a.infra.Logger.Info("initiating shutdown")
	return a.infra.Lifecycle.Shutdown(timeout)
}
