package workflow

import "errors"

var (
	// ErrHalted indicates a batch stopped before every unit was evaluated.
	ErrHalted = errors.New("run halted")
	// ErrNoUnits indicates a run with no zones or no periods to evaluate.
	ErrNoUnits = errors.New("no units to evaluate")
	// ErrOutputExists indicates an output key already present in storage.
	ErrOutputExists = errors.New("output already exists")
)
