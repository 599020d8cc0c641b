package eventlog

import "context"

// EventApplier is implemented by domain aggregates. HandleEvent mutates
// domain state from a record; it must be deterministic so that replaying a
// stream always reproduces identical state.
type EventApplier interface {
	HandleEvent(record *Record)
}

// Aggregate is the interface all event-sourced domain objects implement,
// usually by embedding AggregateBase and implementing EventApplier.
type Aggregate interface {
	EventApplier

	// EntityID returns the unique identifier of the aggregate.
	EntityID() string

	// AggregateType returns the stream type of the aggregate.
	AggregateType() string

	// AggregateVersion returns the number of events applied so far.
	AggregateVersion() uint64

	// UncommittedEvents returns the events applied in memory but not yet
	// durably appended.
	UncommittedEvents() []*Record

	// ClearUncommittedEvents drops the uncommitted events. Call only after
	// the corresponding AppendMany has durably succeeded, never before.
	ClearUncommittedEvents()
}

// AggregateBase carries the common aggregate state: identity, version and
// the ordered list of uncommitted events. The list is exclusively owned by
// this instance until committed.
type AggregateBase struct {
	id      string
	typ     string
	v       uint64
	changes []*Record
}

// NewAggregateBase creates an aggregate base with version 0.
func NewAggregateBase(aggregateType, id string) *AggregateBase {
	return &AggregateBase{
		id:      id,
		typ:     aggregateType,
		changes: make([]*Record, 0),
	}
}

// EntityID implements the Aggregate interface.
func (a *AggregateBase) EntityID() string {
	return a.id
}

// AggregateType implements the Aggregate interface.
func (a *AggregateBase) AggregateType() string {
	return a.typ
}

// AggregateVersion implements the Aggregate interface.
func (a *AggregateBase) AggregateVersion() uint64 {
	return a.v
}

// UncommittedEvents implements the Aggregate interface.
func (a *AggregateBase) UncommittedEvents() []*Record {
	return a.changes
}

// ClearUncommittedEvents implements the Aggregate interface.
func (a *AggregateBase) ClearUncommittedEvents() {
	a.changes = nil
}

// Apply runs the domain transition for the record and bumps the version.
// With isNew the record is also queued for a later append; replayed history
// is applied with isNew false so it is not re-queued.
func (a *AggregateBase) Apply(applier EventApplier, record *Record, isNew bool) {
	applier.HandleEvent(record)
	if isNew {
		a.changes = append(a.changes, record)
	}
	a.v++
}

// AppendEvent builds a Record for this aggregate's stream and applies it as
// a new, uncommitted change.
func (a *AggregateBase) AppendEvent(applier EventApplier, eventType string, payload map[string]any, opts ...RecordOption) {
	record := NewRecord(eventType, a.typ, a.id, payload, opts...)
	a.Apply(applier, record, true)
}

// LoadFromHistory replays previously persisted records, reconstructing
// current state without re-queuing them for append.
func (a *AggregateBase) LoadFromHistory(ctx context.Context, applier EventApplier, iter *Iterator[*Record]) error {
	for iter.Next(ctx) {
		a.Apply(applier, iter.Value(), false)
	}
	return iter.Err()
}

// LoadFromRecords replays an already materialized history slice.
func (a *AggregateBase) LoadFromRecords(applier EventApplier, records []*Record) {
	for _, record := range records {
		a.Apply(applier, record, false)
	}
}
