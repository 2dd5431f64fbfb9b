package accounting

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/landflux/internal/lookup"
)

var (
	// ErrInput indicates a missing, unreadable or misaligned input layer.
	ErrInput = errors.New("input error")
	// ErrLookup indicates a code without a lookup mapping.
	ErrLookup = errors.New("lookup error")
	// ErrNoOverlap indicates a zone that covers no raster cell.
	ErrNoOverlap = errors.New("zone does not overlap the raster")
	// ErrComputation indicates a numeric failure that invalidates the run.
	ErrComputation = errors.New("computation error")
)

// InputError reports a problem with one input layer of a unit.
type InputError struct {
	Zone   string
	Period Period
	Layer  string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: zone %s %s layer %s: %v", ErrInput, e.Zone, e.Period, e.Layer, e.Err)
}

func (e *InputError) Unwrap() []error {
	return []error{ErrInput, e.Err}
}

// LookupError reports a code absent from a lookup table.
type LookupError struct {
	Zone   string
	Period Period
	Table  string
	Code   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: zone %s %s: table %s has no entry for code %s", ErrLookup, e.Zone, e.Period, e.Table, e.Code)
}

func (e *LookupError) Unwrap() []error {
	return []error{ErrLookup, lookup.ErrMissingMapping}
}

// ZoneError reports a zone that cannot be evaluated.
type ZoneError struct {
	Zone   string
	Period Period
	Err    error
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("zone %s %s: %v", e.Zone, e.Period, e.Err)
}

func (e *ZoneError) Unwrap() error {
	return e.Err
}

// ComputationError reports a numeric failure. It halts the run.
type ComputationError struct {
	Zone   string
	Period Period
	Detail string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: zone %s %s: %s", ErrComputation, e.Zone, e.Period, e.Detail)
}

func (e *ComputationError) Unwrap() error {
	return ErrComputation
}

func lookupError(unit Unit, err error) error {
	var missing *lookup.MissingError
	if errors.As(err, &missing) {
		return &LookupError{Zone: unit.Zone.ID, Period: unit.Period, Table: missing.Table, Code: missing.Code}
	}
	return &LookupError{Zone: unit.Zone.ID, Period: unit.Period, Code: err.Error()}
}

// Halts reports whether err must stop the whole run rather than skip a unit.
func Halts(err error) bool {
	return errors.Is(err, ErrComputation) || errors.Is(err, lookup.ErrInvalidFactor)
}
