package results

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/pkg/pagination"
	"github.com/JaimeStill/landflux/pkg/query"
	"github.com/JaimeStill/landflux/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a results repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "results"),
		pagination: pagination,
	}
}

func (r *repo) SaveRun(ctx context.Context, run *Run, records []accounting.Record, issues []accounting.Issue) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	insertRun := `
		INSERT INTO runs(
			id, command, region, factor_version, output_key,
			units, skipped, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertRecord := `
		INSERT INTO records(
			id, run_id, zone_id, start_year, end_year, source, category, disturbance,
			from_code, to_code, cells, hectares, factor, flux, kind
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertIssue := `
		INSERT INTO issues(id, run_id, zone_id, period, kind, lookup_table, code, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx, insertRun,
			run.ID, run.Command, run.Region, run.FactorVersion, run.OutputKey,
			run.Units, run.Skipped, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		); err != nil {
			return struct{}{}, fmt.Errorf("insert run: %w", err)
		}

		if err := repository.ExecEach(ctx, tx, insertRecord, records, func(rec accounting.Record) []any {
			return []any{
				uuid.New(), run.ID, rec.Zone, rec.Period.Start, rec.Period.End,
				string(rec.Source), string(rec.Category), string(rec.Disturbance),
				rec.FromCode, rec.ToCode, rec.Cells, rec.Hectares, rec.Factor, rec.Flux, string(rec.Kind),
			}
		}); err != nil {
			return struct{}{}, fmt.Errorf("insert records: %w", err)
		}

		if err := repository.ExecEach(ctx, tx, insertIssue, issues, func(i accounting.Issue) []any {
			return []any{uuid.New(), run.ID, i.Zone, i.Period, string(i.Kind), i.Table, i.Code, i.Message}
		}); err != nil {
			return struct{}{}, fmt.Errorf("insert issues: %w", err)
		}

		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("run saved",
		"id", run.ID,
		"command", run.Command,
		"records", len(records),
		"issues", len(issues),
	)
	return nil
}

func (r *repo) ListRuns(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Command", "Region", "OutputKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) FindRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) ListRecords(ctx context.Context, runID uuid.UUID) ([]accounting.Record, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM records
		WHERE run_id = $1
		ORDER BY zone_id, start_year, end_year, source DESC, category, disturbance, from_code, to_code`,
		recordColumns)

	records, err := repository.QueryMany(ctx, r.db, q, []any{runID}, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return records, nil
}

func (r *repo) ListIssues(ctx context.Context, runID uuid.UUID) ([]accounting.Issue, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM issues
		WHERE run_id = $1
		ORDER BY zone_id, period, kind`,
		issueColumns)

	issues, err := repository.QueryMany(ctx, r.db, q, []any{runID}, scanIssue)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	return issues, nil
}
