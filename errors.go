package eventlog

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is returned by a Storage implementation when an
	// insert hits the uniqueness constraint on
	// (aggregateType, aggregateId, version). The Log recovers from it by
	// re-reading the stream head and retrying.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStorageUnavailable is returned by a Storage implementation that
	// cannot be reached, has timed out or has been closed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrProjectionNotFound is returned when rebuilding or attaching an
	// unregistered projection.
	ErrProjectionNotFound = errors.New("projection not found")

	// ErrDuplicateProjection is returned when registering a projection under
	// a name that is already taken.
	ErrDuplicateProjection = errors.New("projection already registered")

	// ErrHandlerNotFound is returned by the query provider when no handler
	// matches the query type.
	ErrHandlerNotFound = errors.New("handler not found")
)

// ValidationError reports a malformed or incomplete Record. It is returned
// before any persistence attempt, so the rejected record never consumes a
// version number.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Reason)
}

// ConcurrencyConflictError reports that the bounded retry inside Append was
// exhausted by concurrent writers on the same stream. The caller decides
// whether to retry the whole logical operation.
type ConcurrencyConflictError struct {
	AggregateType string
	AggregateID   string
	Attempts      int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on stream %s/%s after %d attempts",
		e.AggregateType, e.AggregateID, e.Attempts)
}

func (e *ConcurrencyConflictError) Unwrap() error {
	return ErrVersionConflict
}

// StorageError wraps a failure of the storage collaborator.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorageError wraps err in a StorageError, passing nil through.
func WrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Err: err}
}

// ProjectionApplyError reports a failed projection rebuild. Applied holds the
// number of records applied before the failure; the projection owner decides
// whether to keep or discard the partial state.
type ProjectionApplyError struct {
	Projection string
	Applied    int
	Err        error
}

func (e *ProjectionApplyError) Error() string {
	return fmt.Sprintf("projection %q: apply failed after %d records: %v",
		e.Projection, e.Applied, e.Err)
}

func (e *ProjectionApplyError) Unwrap() error {
	return e.Err
}
