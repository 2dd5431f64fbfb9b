package accounting

import (
	"errors"
	"slices"
	"strings"
)

// IssueKind classifies an issue log entry.
type IssueKind string

const (
	IssueInput       IssueKind = "input"
	IssueLookup      IssueKind = "lookup"
	IssueZone        IssueKind = "zone"
	IssueComputation IssueKind = "computation"
	IssueWarning     IssueKind = "warning"
)

// Issue is one entry of the run's issue log.
type Issue struct {
	Zone    string    `json:"zone"`
	Period  string    `json:"period"`
	Kind    IssueKind `json:"kind"`
	Table   string    `json:"table,omitempty"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
}

// IssueHeader is the column order of the issue log.
var IssueHeader = []string{"zone", "period", "kind", "table", "code", "message"}

// Row returns the issue as an issue log row.
func (i Issue) Row() []string {
	return []string{i.Zone, i.Period, string(i.Kind), i.Table, i.Code, i.Message}
}

// IssueFor converts a unit error into an issue log entry.
func IssueFor(unit Unit, err error) Issue {
	issue := Issue{
		Zone:    unit.Zone.ID,
		Period:  unit.Period.String(),
		Message: err.Error(),
	}

	var (
		lookupErr *LookupError
		inputErr  *InputError
		zoneErr   *ZoneError
	)

	switch {
	case errors.As(err, &lookupErr):
		issue.Kind = IssueLookup
		issue.Table = lookupErr.Table
		issue.Code = lookupErr.Code
	case errors.As(err, &inputErr):
		issue.Kind = IssueInput
		issue.Table = inputErr.Layer
	case errors.As(err, &zoneErr):
		issue.Kind = IssueZone
	case Halts(err):
		issue.Kind = IssueComputation
	default:
		issue.Kind = IssueInput
	}

	return issue
}

// SortIssues orders issues by zone, period and kind.
func SortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		if c := strings.Compare(a.Zone, b.Zone); c != 0 {
			return c
		}
		if c := strings.Compare(a.Period, b.Period); c != 0 {
			return c
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
}
