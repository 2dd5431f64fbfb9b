package workflow

import (
	"context"
	"time"

	"github.com/JaimeStill/landflux/internal/results"
)

// Save stores the batch in the results store. It does nothing when the
// store is disabled.
func (rt *Runtime) Save(ctx context.Context, command string, started time.Time, pub *Publisher, out *Outcome) (*results.Run, error) {
	if rt.Results == nil {
		return nil, nil
	}

	run := &results.Run{
		Command:       command,
		Region:        rt.Config.Analysis.Region,
		FactorVersion: rt.Config.Analysis.FactorVersion,
		OutputKey:     pub.Folder(),
		Units:         len(out.Units),
		Skipped:       out.Skipped(),
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}

	if err := rt.Results.SaveRun(ctx, run, out.Records(), out.Issues); err != nil {
		return nil, err
	}
	return run, nil
}

// Summary describes a completed run.
type Summary struct {
	Folder  string
	Files   []string
	Units   int
	Skipped int
	Issues  int
	// Run is nil when the results store is disabled.
	Run *results.Run
}

// Summarize describes the run published by pub.
func Summarize(pub *Publisher, out *Outcome, run *results.Run) *Summary {
	return &Summary{
		Folder:  pub.Folder(),
		Files:   pub.Files(),
		Units:   len(out.Units),
		Skipped: out.Skipped(),
		Issues:  len(out.Issues),
		Run:     run,
	}
}
