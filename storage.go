package eventlog

import (
	"context"
	"time"
)

// TypeQuery bounds a read of one event type.
type TypeQuery struct {
	// Limit caps the number of records returned. Zero means no cap.
	Limit int
	// Skip drops the first Skip matching records.
	Skip int
	// From excludes records with a timestamp before it. Zero time means
	// from the beginning.
	From time.Time
}

// Window bounds a full-log read by timestamp. Zero values mean unbounded on
// that side.
type Window struct {
	From time.Time
	To   time.Time
}

// Storage is the single external collaborator of the core. It provides
// durable keyed writes with a uniqueness constraint on
// (aggregateType, aggregateId, version), indexed range reads and an atomic
// multi-record commit.
//
// Implementations must guarantee:
//   - Insert is all-or-nothing: on any failure no record of the batch is
//     visible to readers.
//   - Insert returns an error wrapping ErrVersionConflict when any record of
//     the batch collides with an existing (aggregateType, aggregateId,
//     version).
//   - Read iterators yield records oldest first: ReadStream by version,
//     ReadByType and ReadAll by timestamp.
//   - Reads never block concurrent Inserts; cursors over large result sets
//     stream rather than materialize.
//   - After Close, all operations return an error wrapping
//     ErrStorageUnavailable. Close is idempotent.
type Storage interface {
	// Insert persists all records as one atomic unit. Records must arrive
	// with EventID, Version and Timestamp already assigned.
	Insert(ctx context.Context, records []*Record) error

	// HighestVersion returns the highest version in the stream, or 0 if the
	// stream does not exist.
	HighestVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error)

	// ReadStream returns records of one stream with Version > fromVersion,
	// ascending.
	ReadStream(ctx context.Context, aggregateType, aggregateID string, fromVersion uint64) (*Iterator[*Record], error)

	// ReadByType returns records of one event type ordered by timestamp
	// ascending, bounded by q.
	ReadByType(ctx context.Context, eventType string, q TypeQuery) (*Iterator[*Record], error)

	// ReadAll returns all records ordered by timestamp ascending, bounded by
	// the window. Used for projection rebuilds.
	ReadAll(ctx context.Context, window Window) (*Iterator[*Record], error)

	Close() error
}
