package lookup

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMapping indicates a code absent from a lookup table.
	ErrMissingMapping = errors.New("missing lookup mapping")
	// ErrInvalidFactor indicates a factor with the wrong sign or a non-finite value.
	ErrInvalidFactor = errors.New("invalid factor")
	// ErrInvalidTable indicates a malformed lookup source file.
	ErrInvalidTable = errors.New("invalid lookup table")
)

// MissingError reports the table and code of a failed lookup.
type MissingError struct {
	Table string
	Code  string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: table %s has no entry for code %s", ErrMissingMapping, e.Table, e.Code)
}

func (e *MissingError) Unwrap() error {
	return ErrMissingMapping
}
