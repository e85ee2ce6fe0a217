package loader

import (
	"errors"
	"fmt"

	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
)

// Reason classifies a bind failure.
type Reason string

const (
	ReasonUnresolvable Reason = "unresolvable"
	ReasonContract     Reason = "contract mismatch"
)

// LoadError is returned by Bind. It is terminal for the process: the loader
// never retries.
type LoadError struct {
	ID      string
	Runtime manifest.Runtime
	Reason  Reason
	Err     error
	Trace   string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q (%s): %s: %v", e.ID, e.Runtime, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func unresolvable(format string, args ...any) *LoadError {
	return &LoadError{Reason: ReasonUnresolvable, Err: fmt.Errorf(format, args...)}
}

func contractMismatch(format string, args ...any) *LoadError {
	return &LoadError{Reason: ReasonContract, Err: fmt.Errorf(format, args...)}
}

// ErrContract is returned when a call reaches a handle that has no usable
// entry point.
var ErrContract = errors.New("handle lacks the expected call contract")

// HandlerError is a failure raised by the workload's own code.
type HandlerError struct {
	Message string
	Trace   string
}

func (e *HandlerError) Error() string { return e.Message }
