// internal/sched/errors.go

package sched

import "errors"

// Errors returned while building a task set or dispatcher.
var (
	// ErrUnknownPolicy indicates a policy name that is neither RR nor EDF
	ErrUnknownPolicy = errors.New("unknown scheduling policy")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyTaskSet indicates a task set without any task
	ErrEmptyTaskSet = errors.New("task set is empty")

	// ErrDuplicateTask indicates two tasks sharing a name
	ErrDuplicateTask = errors.New("duplicate task name")

	// ErrInvalidPeriod indicates a zero period
	ErrInvalidPeriod = errors.New("period must be positive")
)
