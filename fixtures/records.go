package fixtures

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	es "github.com/terraskye/eventlog"
)

// RecordBuilder provides a fluent API for constructing test records.
type RecordBuilder struct {
	eventType     string
	aggregateType string
	aggregateID   string
	payload       map[string]any
	metadata      map[string]any
	version       uint64
	timestamp     time.Time
}

// NewRecord creates a RecordBuilder with sensible defaults.
func NewRecord() *RecordBuilder {
	return &RecordBuilder{
		eventType:     "TestEvent",
		aggregateType: "TestAggregate",
		aggregateID:   "aggregate-1",
		payload:       map[string]any{},
	}
}

// WithType sets the event type.
func (b *RecordBuilder) WithType(eventType string) *RecordBuilder {
	b.eventType = eventType
	return b
}

// WithStream sets the aggregate type and id.
func (b *RecordBuilder) WithStream(aggregateType, aggregateID string) *RecordBuilder {
	b.aggregateType = aggregateType
	b.aggregateID = aggregateID
	return b
}

// WithPayload sets the payload.
func (b *RecordBuilder) WithPayload(payload map[string]any) *RecordBuilder {
	b.payload = payload
	return b
}

// WithMetadata sets the metadata.
func (b *RecordBuilder) WithMetadata(metadata map[string]any) *RecordBuilder {
	b.metadata = metadata
	return b
}

// WithVersion pre-assigns a version, for seeding storage directly.
func (b *RecordBuilder) WithVersion(version uint64) *RecordBuilder {
	b.version = version
	return b
}

// WithTimestamp pre-assigns a timestamp, for seeding storage directly.
func (b *RecordBuilder) WithTimestamp(t time.Time) *RecordBuilder {
	b.timestamp = t
	return b
}

// Build constructs the record. When a version or timestamp was set the
// record also gets an event id, mimicking a record that already went through
// an append.
func (b *RecordBuilder) Build() *es.Record {
	r := es.NewRecord(b.eventType, b.aggregateType, b.aggregateID, b.payload)
	if b.metadata != nil {
		r.Metadata = b.metadata
	}
	if b.version > 0 || !b.timestamp.IsZero() {
		r.EventID = uuid.New()
		r.Version = b.version
		r.Timestamp = b.timestamp
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now()
		}
	}
	return r
}

// BuildN creates n appendable records on the same stream with sequential
// payloads.
func (b *RecordBuilder) BuildN(n int) []*es.Record {
	records := make([]*es.Record, n)
	for i := 0; i < n; i++ {
		records[i] = es.NewRecord(b.eventType, b.aggregateType, b.aggregateID, map[string]any{
			"seq": fmt.Sprintf("%d", i+1),
		})
	}
	return records
}

// Persisted creates a fully stamped record at the given version, for seeding
// a Storage without going through the Log.
func Persisted(aggregateType, aggregateID, eventType string, version uint64, ts time.Time) *es.Record {
	return NewRecord().
		WithType(eventType).
		WithStream(aggregateType, aggregateID).
		WithVersion(version).
		WithTimestamp(ts).
		Build()
}
