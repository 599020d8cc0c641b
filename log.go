package eventlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

const defaultMaxRetries = 3

// Log is the append-only, per-stream-versioned event log. It owns version
// assignment with optimistic concurrency, delegates durability to its
// Storage collaborator and notifies the subscriber registry after every
// durable append.
//
// A Log is safe for concurrent use. Writers to different streams never
// coordinate; writers to the same stream race on the storage uniqueness
// constraint and the loser retries with a fresh version.
type Log struct {
	storage     Storage
	subscribers *SubscriberRegistry
	logger      *slog.Logger
	maxRetries  int
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithMaxRetries bounds the number of version-conflict retries inside a
// single Append or AppendMany call.
func WithMaxRetries(n int) LogOption {
	return func(l *Log) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for subscriber failures and append
// diagnostics.
func WithLogger(logger *slog.Logger) LogOption {
	return func(l *Log) {
		l.logger = logger
	}
}

// NewLog creates a Log on top of the given storage.
func NewLog(storage Storage, opts ...LogOption) *Log {
	l := &Log{
		storage:    storage,
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.subscribers = NewSubscriberRegistry(l.logger)
	return l
}

// Subscribe registers a handler on the log's registry. See
// SubscriberRegistry.Subscribe.
func (l *Log) Subscribe(eventType string, handler Handler) func() {
	return l.subscribers.Subscribe(eventType, handler)
}

// Subscribers exposes the registry, for attaching projections or middleware.
func (l *Log) Subscribers() *SubscriberRegistry {
	return l.subscribers
}

// Append assigns identity and the next version to the record and persists
// it. On a version race with a concurrent appender it re-reads the stream
// head and retries, bounded by the configured retry count; exhaustion
// surfaces as *ConcurrencyConflictError. Validation failures are returned
// before any storage call and never consume a version.
//
// Subscribers are notified synchronously after durability is confirmed,
// never before.
func (l *Log) Append(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		highest, err := l.storage.HighestVersion(ctx, record.AggregateType, record.AggregateID)
		if err != nil {
			return WrapStorageError(err)
		}

		record.EventID = uuid.New()
		record.Version = highest + 1
		record.Timestamp = now()
		if record.Metadata == nil {
			record.Metadata = make(map[string]any)
		}

		err = l.storage.Insert(ctx, []*Record{record})
		if err == nil {
			l.subscribers.Notify(ctx, record)
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return WrapStorageError(err)
		}

		l.logger.DebugContext(ctx, "append version conflict, retrying",
			"stream", record.Stream(),
			"version", record.Version,
			"attempt", attempt+1,
		)
	}

	return &ConcurrencyConflictError{
		AggregateType: record.AggregateType,
		AggregateID:   record.AggregateID,
		Attempts:      l.maxRetries,
	}
}

// AppendMany persists all records as one atomic unit, across any number of
// streams: either every record becomes visible with a correctly assigned
// version inside its own stream, or none do. Records of the same stream keep
// their relative input order. Version races trigger a bounded retry of the
// whole batch.
func (l *Log) AppendMany(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		if err := l.assignVersions(ctx, records); err != nil {
			return err
		}

		err := l.storage.Insert(ctx, records)
		if err == nil {
			for _, record := range records {
				l.subscribers.Notify(ctx, record)
			}
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return WrapStorageError(err)
		}

		l.logger.DebugContext(ctx, "batch append version conflict, retrying",
			"records", len(records),
			"attempt", attempt+1,
		)
	}

	first := records[0]
	return &ConcurrencyConflictError{
		AggregateType: first.AggregateType,
		AggregateID:   first.AggregateID,
		Attempts:      l.maxRetries,
	}
}

// assignVersions stamps identity, timestamp and the next consecutive version
// per stream onto every record of the batch.
func (l *Log) assignVersions(ctx context.Context, records []*Record) error {
	next := make(map[string]uint64)
	for _, record := range records {
		stream := record.Stream()
		if _, seen := next[stream]; !seen {
			highest, err := l.storage.HighestVersion(ctx, record.AggregateType, record.AggregateID)
			if err != nil {
				return WrapStorageError(err)
			}
			next[stream] = highest
		}
		next[stream]++

		record.EventID = uuid.New()
		record.Version = next[stream]
		record.Timestamp = now()
		if record.Metadata == nil {
			record.Metadata = make(map[string]any)
		}
	}
	return nil
}

// GetEvents returns the records of one stream with Version > fromVersion in
// ascending version order. Pass fromVersion 0 for the full stream.
func (l *Log) GetEvents(ctx context.Context, aggregateType, aggregateID string, fromVersion uint64) (*Iterator[*Record], error) {
	iter, err := l.storage.ReadStream(ctx, aggregateType, aggregateID, fromVersion)
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return iter, nil
}

// GetEventsByType returns records of one event type ordered by timestamp
// ascending, bounded by q.
func (l *Log) GetEventsByType(ctx context.Context, eventType string, q TypeQuery) (*Iterator[*Record], error) {
	iter, err := l.storage.ReadByType(ctx, eventType, q)
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return iter, nil
}

// Close releases the storage collaborator.
func (l *Log) Close() error {
	return l.storage.Close()
}
