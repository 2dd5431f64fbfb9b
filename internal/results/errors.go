package results

import "errors"

var (
	ErrNotFound  = errors.New("run not found")
	ErrDuplicate = errors.New("run already exists")
)
