package results

import (
	"time"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/query"
	"github.com/JaimeStill/landflux/pkg/repository"
)

var projection = query.
	NewProjectionMap("", "runs", "r").
	Project("id", "ID").
	Project("command", "Command").
	Project("region", "Region").
	Project("factor_version", "FactorVersion").
	Project("output_key", "OutputKey").
	Project("units", "Units").
	Project("skipped", "Skipped").
	Project("started_at", "StartedAt").
	Project("finished_at", "FinishedAt")

var defaultSort = query.SortField{
	Field:      "StartedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for run queries.
// Nil fields are ignored. String fields use exact matching; Since keeps runs
// started at or after the given time.
type Filters struct {
	Command       *string    `json:"command,omitempty"`
	Region        *string    `json:"region,omitempty"`
	FactorVersion *string    `json:"factor_version,omitempty"`
	Since         *time.Time `json:"since,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var since any
	if f.Since != nil {
		since = f.Since.UTC()
	}
	return b.
		WhereEquals("Command", f.Command).
		WhereEquals("Region", f.Region).
		WhereEquals("FactorVersion", f.FactorVersion).
		WhereAtLeast("StartedAt", since)
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID,
		&r.Command,
		&r.Region,
		&r.FactorVersion,
		&r.OutputKey,
		&r.Units,
		&r.Skipped,
		&r.StartedAt,
		&r.FinishedAt,
	)
	return r, err
}

const recordColumns = `zone_id, start_year, end_year, source, category, disturbance,
	from_code, to_code, cells, hectares, factor, flux, kind`

func scanRecord(s repository.Scanner) (accounting.Record, error) {
	var (
		r           accounting.Record
		source      string
		category    string
		disturbance string
		kind        string
	)
	err := s.Scan(
		&r.Zone,
		&r.Period.Start,
		&r.Period.End,
		&source,
		&category,
		&disturbance,
		&r.FromCode,
		&r.ToCode,
		&r.Cells,
		&r.Hectares,
		&r.Factor,
		&r.Flux,
		&kind,
	)
	r.Source = accounting.Source(source)
	r.Category = accounting.Category(category)
	r.Disturbance = lookup.Disturbance(disturbance)
	r.Kind = accounting.Kind(kind)
	return r, err
}

const issueColumns = `zone_id, period, kind, lookup_table, code, message`

func scanIssue(s repository.Scanner) (accounting.Issue, error) {
	var (
		i    accounting.Issue
		kind string
	)
	err := s.Scan(&i.Zone, &i.Period, &kind, &i.Table, &i.Code, &i.Message)
	i.Kind = accounting.IssueKind(kind)
	return i, err
}
