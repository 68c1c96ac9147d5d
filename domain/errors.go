package domain

import (
	"errors"
	"fmt"
)

// FailureClass splits collaborator failures into the two retry policies the
// stages apply: transient failures are retried with backoff, permanent ones
// are not.
type FailureClass string

const (
	FailureTransient FailureClass = "transient"
	FailurePermanent FailureClass = "permanent"
)

// ErrorKind names the surface-level error taxonomy reported through the
// status endpoint.
type ErrorKind string

const (
	ErrorKindOracle          ErrorKind = "OracleError"
	ErrorKindVoiceResolution ErrorKind = "VoiceResolutionError"
	ErrorKindSynthesis       ErrorKind = "SynthesisError"
	ErrorKindTranscode       ErrorKind = "TranscodeError"
)

// ClassifiedError wraps a collaborator error with its failure class and the
// taxonomy kind. Adapters assign the class; stages only consult it.
type ClassifiedError struct {
	Kind  ErrorKind
	Class FailureClass
	Err   error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Class, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retriable failure of the given kind.
func NewTransient(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Class: FailureTransient, Err: err}
}

// NewPermanent wraps err as a non-retriable failure of the given kind.
func NewPermanent(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Class: FailurePermanent, Err: err}
}

// IsTransient reports whether err carries a transient classification.
// Unclassified errors are treated as permanent.
func IsTransient(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == FailureTransient
	}
	return false
}

// KindOf extracts the taxonomy kind from err, or the given fallback when err
// was never classified.
func KindOf(err error, fallback ErrorKind) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return fallback
}

var (
	// ErrCancelled marks a cooperative stop. It is not a failure: tasks
	// observing it transition to CANCELLED, not FAILED.
	ErrCancelled = errors.New("generation cancelled")

	// ErrQueueBackpressureTimeout is returned when a producer blocked on the
	// script queue longer than the configured cap.
	ErrQueueBackpressureTimeout = errors.New("script queue backpressure timeout")

	// ErrSinkFinalized is returned on appends after the sink was finalized.
	ErrSinkFinalized = errors.New("audio sink already finalized")

	// ErrPlaylistClosed is returned on appends after the playlist was closed.
	ErrPlaylistClosed = errors.New("playlist already closed")

	// ErrTaskNotFound is returned by the manager for unknown task ids.
	ErrTaskNotFound = errors.New("task not found")
)
