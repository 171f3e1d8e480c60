package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEvents means the customer has no purchase history. It is a terminal
	// "nothing to do" signal, not a failure.
	ErrNoEvents = errors.New("no purchase events")
	// ErrClassifierUnavailable covers a missing model or a failed call.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrClassifierTimeout is returned when the classifier exceeds its deadline.
	ErrClassifierTimeout = errors.New("classifier timeout")
	// ErrInvalidPrediction is returned for labels outside the enum or bad confidences.
	ErrInvalidPrediction = errors.New("invalid prediction")
	// ErrInvalidEvent is returned for events that break the stream invariants.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrDuplicateEvent is returned when an event id is recorded twice.
	ErrDuplicateEvent = errors.New("duplicate event")
)

// PersistenceError wraps a storage failure with the write that failed.
// The whole recompute is safe to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsClassifierDegraded reports whether err means tier evaluation should be skipped.
func IsClassifierDegraded(err error) bool {
	return errors.Is(err, ErrClassifierUnavailable) ||
		errors.Is(err, ErrClassifierTimeout) ||
		errors.Is(err, ErrInvalidPrediction)
}
