package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration, structural and aggregation failures.
var (
	ErrDuplicateRole = errors.New("duplicate role")
	ErrUnknownRole   = errors.New("unknown role")
	ErrUnknownNode   = errors.New("unknown node")
	ErrInvalidGraph  = errors.New("invalid graph")
	ErrCyclicGraph   = errors.New("cyclic graph")
	ErrEmptyTrace    = errors.New("empty trace")
	ErrRunNotFound   = errors.New("run not found")
	ErrRunInProgress = errors.New("run already in progress")
)

// UnitExecutionError is a unit's own failure. It is recorded on the failed
// ExecutionRecord and never returned by an executor.
type UnitExecutionError struct {
	Role string
	Err  error
}

func (e *UnitExecutionError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.Role, e.Err)
}

func (e *UnitExecutionError) Unwrap() error { return e.Err }
