package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	streamKey        ctxKey = "stream"
	aggregateTypeKey ctxKey = "aggregateType"
	aggregateIDKey   ctxKey = "aggregateID"
	eventIDKey       ctxKey = "eventID"
	versionKey       ctxKey = "version"
	timestampKey     ctxKey = "timestamp"
	metadataKey      ctxKey = "metadata"
)

// WithRecord adds the identity of the Record to the context. The Log does
// this before notifying subscribers so logging and telemetry middleware can
// annotate without threading the record through.
func WithRecord(ctx context.Context, record *Record) context.Context {
	ctx = context.WithValue(ctx, streamKey, record.Stream())
	ctx = context.WithValue(ctx, aggregateTypeKey, record.AggregateType)
	ctx = context.WithValue(ctx, aggregateIDKey, record.AggregateID)
	ctx = context.WithValue(ctx, eventIDKey, record.EventID)
	ctx = context.WithValue(ctx, versionKey, record.Version)
	ctx = context.WithValue(ctx, timestampKey, record.Timestamp)
	ctx = context.WithValue(ctx, metadataKey, record.Metadata)
	return ctx
}

// StreamFromContext returns the stream key or "" if not present.
func StreamFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(streamKey).(string); ok {
		return s
	}
	return ""
}

// AggregateTypeFromContext returns the aggregate type or "" if not present.
func AggregateTypeFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(aggregateTypeKey).(string); ok {
		return s
	}
	return ""
}

// AggregateIDFromContext returns the aggregate id or "" if not present.
func AggregateIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(aggregateIDKey).(string); ok {
		return s
	}
	return ""
}

// EventIDFromContext returns the event id or uuid.Nil if not present.
func EventIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(eventIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// VersionFromContext returns the stream version or 0 if not present.
func VersionFromContext(ctx context.Context) uint64 {
	if v, ok := ctx.Value(versionKey).(uint64); ok {
		return v
	}
	return 0
}

// TimestampFromContext returns the record timestamp or the zero time if not
// present.
func TimestampFromContext(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timestampKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// MetadataFromContext returns the record metadata or nil if not present.
func MetadataFromContext(ctx context.Context) map[string]any {
	if md, ok := ctx.Value(metadataKey).(map[string]any); ok {
		return md
	}
	return nil
}

// CausationFromContext returns the causation id from the record metadata or
// "" if not present.
func CausationFromContext(ctx context.Context) string {
	if md := MetadataFromContext(ctx); md != nil {
		if s, ok := md["causationId"].(string); ok {
			return s
		}
	}
	return ""
}
