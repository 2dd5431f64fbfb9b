// Package infrastructure provides core system initialization for a landflux run.
// It assembles the common dependencies (logging, results store, output storage)
// that the analysis drivers require.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/migrations"
	"github.com/JaimeStill/landflux/pkg/database"
	"github.com/JaimeStill/landflux/pkg/lifecycle"
	"github.com/JaimeStill/landflux/pkg/storage"
)

// Infrastructure holds the core systems shared by the drivers. Database is
// nil when the results store is disabled.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
}

// New creates an Infrastructure from the run configuration, logging to w.
// It initializes all systems but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config, w io.Writer) (*Infrastructure, error) {
	if w == nil {
		w = os.Stderr
	}

	lc := lifecycle.New(ctx)
	logger := slog.New(slog.NewTextHandler(w, nil))

	var db database.System
	if cfg.Database.Enabled {
		var err error
		db, err = database.New(&cfg.Database, migrations.FS, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator
// and waits for their startup hooks.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return i.Lifecycle.WaitForStartup()
}
