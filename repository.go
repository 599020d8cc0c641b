package eventlog

import "context"

// Repository ties aggregates to the Log: Load replays a stream into a fresh
// aggregate, Save appends its uncommitted events atomically and clears them
// only after the append durably succeeded.
type Repository struct {
	log *Log
}

// NewRepository creates a repository over the given log.
func NewRepository(log *Log) *Repository {
	return &Repository{log: log}
}

// Load replays the aggregate's stream into it, starting after its current
// version. Loading an aggregate that has no stream yet is not an error; it
// simply stays at version 0.
func (r *Repository) Load(ctx context.Context, agg Aggregate) error {
	iter, err := r.log.GetEvents(ctx, agg.AggregateType(), agg.EntityID(), agg.AggregateVersion())
	if err != nil {
		return err
	}

	base, ok := agg.(interface {
		LoadFromHistory(ctx context.Context, applier EventApplier, iter *Iterator[*Record]) error
	})
	if !ok {
		// Aggregates built on AggregateBase always hit the fast path above.
		for iter.Next(ctx) {
			agg.HandleEvent(iter.Value())
		}
		return iter.Err()
	}
	return base.LoadFromHistory(ctx, agg, iter)
}

// Save appends the aggregate's uncommitted events as one atomic unit. On
// success the changes are cleared; on any failure, including a concurrency
// conflict, they stay queued so the caller can reload and retry.
func (r *Repository) Save(ctx context.Context, agg Aggregate) error {
	changes := agg.UncommittedEvents()
	if len(changes) == 0 {
		return nil
	}
	if err := r.log.AppendMany(ctx, changes); err != nil {
		return err
	}
	agg.ClearUncommittedEvents()
	return nil
}

// PayloadHandler routes records of one event type to a typed handling
// function, for HandleEvent implementations that prefer a dispatch table
// over a switch.
type PayloadHandler struct {
	EventType string
	Handle    func(record *Record)
}

// On creates a PayloadHandler for one event type.
func On(eventType string, handle func(record *Record)) PayloadHandler {
	return PayloadHandler{EventType: eventType, Handle: handle}
}

// Hydrate builds a HandleEvent-compatible dispatch function from per-type
// handlers. Records of unknown types are ignored, which keeps old aggregates
// replayable when new event types are introduced.
func Hydrate(handlers ...PayloadHandler) func(record *Record) {
	byType := make(map[string]func(record *Record), len(handlers))
	for _, h := range handlers {
		byType[h.EventType] = h.Handle
	}
	return func(record *Record) {
		if handle, ok := byType[record.EventType]; ok {
			handle(record)
		}
	}
}
