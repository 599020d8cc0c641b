package eventlog

import (
	"time"

	"github.com/google/uuid"
)

var now = time.Now

// Record is a single immutable fact in the log. EventID, Version and
// Timestamp are assigned by the Log at append time; a Record constructed by
// domain code carries only its type, stream identity and payload.
//
// Within a stream (AggregateType, AggregateID) versions form a gapless
// sequence starting at 1. Once appended a Record is never mutated or deleted.
type Record struct {
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	Payload       map[string]any
	Metadata      map[string]any
	Version       uint64
	Timestamp     time.Time

	// Bookkeeping for consumers that poll the log instead of subscribing.
	// Never touched by the core itself.
	Processed       bool
	ProcessingError string
}

// RecordOption customizes a Record at construction time.
type RecordOption func(*Record)

// WithMetadata merges the given metadata into the record.
func WithMetadata(md map[string]any) RecordOption {
	return func(r *Record) {
		for k, v := range md {
			r.Metadata[k] = v
		}
	}
}

// WithActorID records which actor caused the event.
func WithActorID(id string) RecordOption {
	return func(r *Record) {
		r.Metadata["actorId"] = id
	}
}

// WithCorrelationID ties the event to a logical operation spanning multiple
// events.
func WithCorrelationID(id string) RecordOption {
	return func(r *Record) {
		r.Metadata["correlationId"] = id
	}
}

// WithCausationID records the identifier of the event or command that caused
// this one.
func WithCausationID(id string) RecordOption {
	return func(r *Record) {
		r.Metadata["causationId"] = id
	}
}

// WithSource records the system of origin.
func WithSource(source string) RecordOption {
	return func(r *Record) {
		r.Metadata["source"] = source
	}
}

// NewRecord creates a transient Record ready to be appended.
func NewRecord(eventType, aggregateType, aggregateID string, payload map[string]any, opts ...RecordOption) *Record {
	r := &Record{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       payload,
		Metadata:      make(map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks the fields domain code is responsible for. It is called by
// the Log before any persistence attempt, so a rejected record never consumes
// a version number.
func (r *Record) Validate() error {
	switch {
	case r == nil:
		return &ValidationError{Field: "record", Reason: "record is nil"}
	case r.EventType == "":
		return &ValidationError{Field: "eventType", Reason: "must not be empty"}
	case r.AggregateType == "":
		return &ValidationError{Field: "aggregateType", Reason: "must not be empty"}
	case r.AggregateID == "":
		return &ValidationError{Field: "aggregateId", Reason: "must not be empty"}
	case r.Payload == nil:
		return &ValidationError{Field: "payload", Reason: "must not be nil"}
	}
	return nil
}

// Stream returns the stream key of the record.
func (r *Record) Stream() string {
	return r.AggregateType + "/" + r.AggregateID
}
