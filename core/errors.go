package core

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the pipeline error taxonomy. Callers classify with
// errors.Is; wrapped detail is carried via fmt.Errorf("%w: ...").
var (
	// ErrUnknownRequestType rejects a request before any stage runs.
	ErrUnknownRequestType = errors.New("unknown request type")

	// ErrSessionBusy is returned when a session already has an in-flight
	// pipeline and the engine policy is to reject rather than queue.
	ErrSessionBusy = errors.New("session has an active pipeline")

	// ErrTimeout classifies an exceeded end-to-end wall-clock budget. It is
	// surfaced as an error frame, not treated as a crash.
	ErrTimeout = errors.New("pipeline deadline exceeded")
)

// InvariantError reports a programming defect: a stage completed without
// writing its derived result, overwrote another stage's entry, or violated
// the processing order. It is fatal and never retried.
type InvariantError struct {
	Stage  string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("stage %s violated pipeline invariant: %s", e.Stage, e.Reason)
}

// IsInvariantError reports whether err (or anything it wraps) is an
// InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
