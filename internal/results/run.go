// Package results persists analysis runs, their records and issue logs to
// the results store.
package results

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/pkg/pagination"
)

// Run describes one completed analysis run.
type Run struct {
	ID            uuid.UUID `json:"id"`
	Command       string    `json:"command"`
	Region        string    `json:"region"`
	FactorVersion string    `json:"factor_version"`
	OutputKey     string    `json:"output_key"`
	Units         int       `json:"units"`
	Skipped       int       `json:"skipped"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Elapsed returns the run duration.
func (r Run) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// System defines the results store operations.
type System interface {
	// SaveRun stores run with its records and issues in one transaction.
	// A zero run ID is replaced with a new one.
	SaveRun(ctx context.Context, run *Run, records []accounting.Record, issues []accounting.Issue) error
	ListRuns(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Run], error)
	FindRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRecords(ctx context.Context, runID uuid.UUID) ([]accounting.Record, error)
	ListIssues(ctx context.Context, runID uuid.UUID) ([]accounting.Issue, error)
}
