package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNoExtractors      = errors.New("no feature extractors configured")
	ErrUnknownKind       = errors.New("unknown extractor kind")
	ErrUnknownFilter     = errors.New("unknown filter")
	ErrMalformedDocument = errors.New("malformed document")
	ErrFeatureCollision  = errors.New("feature name collision")
	ErrWrite             = errors.New("write failed")
	ErrReadOnly          = errors.New("store is read-only")
	ErrIncomplete        = errors.New("feature store incomplete")
	ErrAborted           = errors.New("run aborted")
)

// Phase names the step of a run that failed.
type Phase string

const (
	PhaseInit      Phase = "init"
	PhaseProcess   Phase = "process"
	PhaseFilter    Phase = "filter"
	PhaseReconcile Phase = "reconcile"
	PhasePersist   Phase = "persist"
)

// RunError is returned when a whole pass has to be aborted.
type RunError struct {
	Phase Phase
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run aborted during %s: %v", e.Phase, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Abort wraps err into a RunError for the given phase. A nil err stays nil.
func Abort(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	var re *RunError
	if errors.As(err, &re) {
		return err
	}
	return &RunError{Phase: phase, Err: err}
}

// Malformed marks err as a per-document annotation problem.
func Malformed(docID string, format string, args ...any) error {
	return fmt.Errorf("%w: document %q: %s", ErrMalformedDocument, docID, fmt.Sprintf(format, args...))
}
