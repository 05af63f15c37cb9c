package bqm

import "errors"

var (
	// ErrInvalidDomain indicates a vartype or value outside BINARY and SPIN.
	ErrInvalidDomain = errors.New("bqm: invalid variable domain")
	// ErrIncomplete indicates an assignment that does not cover the required variables.
	ErrIncomplete = errors.New("bqm: incomplete assignment")
	// ErrUnknownVariable indicates a variable that is not part of the model.
	ErrUnknownVariable = errors.New("bqm: unknown variable")
)
