package markov

import "errors"

var (
	// ErrEmptyInput is returned when a count table is empty or sums to zero.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvariantViolation indicates a malformed distribution reached the
	// sampler. It is a construction bug, never a runtime input problem.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrUnknownContext is returned when generation needs a transition from a
	// context the model never observed.
	ErrUnknownContext = errors.New("unknown context")
	// ErrInvalidArgument is returned when a generation length is below the
	// minimum the model order requires.
	ErrInvalidArgument = errors.New("invalid argument")
)
