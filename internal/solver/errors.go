package solver

import "errors"

var (
	// ErrNotRegistered is returned for an unknown strategy name.
	ErrNotRegistered = errors.New("solver: strategy not registered")
	// ErrInvalidParam is returned for a missing or malformed parameter.
	ErrInvalidParam = errors.New("solver: invalid parameter")
	// ErrTooLarge is returned when the exact sampler is given too many variables.
	ErrTooLarge = errors.New("solver: problem too large for exhaustive search")
	// ErrNoSubsamples is returned by composers given nothing to merge.
	ErrNoSubsamples = errors.New("solver: no subsamples to compose")
)
