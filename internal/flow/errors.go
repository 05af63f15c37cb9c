package flow

import "errors"

var (
	// ErrFoldEmpty is returned when a fold has no usable candidate.
	ErrFoldEmpty = errors.New("flow: no usable candidates to fold")
	// ErrStopped is returned by a Branch whose stop signal fired between steps.
	ErrStopped = errors.New("flow: stopped")
	// ErrNoSubproblem is returned when a step needs a problem the state does not carry.
	ErrNoSubproblem = errors.New("flow: state carries no problem")
	// ErrBranchPanic records a racing branch that panicked.
	ErrBranchPanic = errors.New("flow: branch panicked")
)
