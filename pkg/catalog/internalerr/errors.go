package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrCycle         = errors.New("mapping cycle")
	ErrCountMismatch = errors.New("inconsistent counts")
	ErrInvalidConfig = errors.New("invalid configuration")
)
