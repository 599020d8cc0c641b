package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Handler consumes a just-appended Record. Delivery is synchronous and
// best-effort: a handler error is logged and isolated, it never fails or
// rolls back the append that triggered it.
type Handler interface {
	Handle(ctx context.Context, record *Record) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, record *Record) error

func (f HandlerFunc) Handle(ctx context.Context, record *Record) error {
	return f(ctx, record)
}

// removed is atomic because Notify checks it after releasing the lock it
// snapshotted the handler list under, while unsubscribe may fire from any
// goroutine.
type subscription struct {
	handler Handler
	removed atomic.Bool
}

// SubscriberRegistry fans a record out to subscribed handlers. It is owned
// by one Log instance; there is no process-wide registry.
//
// Notification order per record: exact-type handlers in registration order,
// then wildcard handlers in registration order.
type SubscriberRegistry struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	logger *slog.Logger
}

// NewSubscriberRegistry creates an empty registry. A nil logger defaults to
// slog.Default().
func NewSubscriberRegistry(logger *slog.Logger) *SubscriberRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriberRegistry{
		subs:   make(map[string][]*subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for an exact event type, or for all types
// via Wildcard. The returned function removes exactly this registration and
// is safe to call more than once.
func (r *SubscriberRegistry) Subscribe(eventType string, handler Handler) func() {
	sub := &subscription{handler: handler}

	r.mu.Lock()
	r.subs[eventType] = append(r.subs[eventType], sub)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(eventType, sub)
		})
	}
}

func (r *SubscriberRegistry) remove(eventType string, sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subs[eventType]
	for i, s := range subs {
		if s == sub {
			s.removed.Store(true)
			r.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[eventType]) == 0 {
		delete(r.subs, eventType)
	}
}

// Notify delivers the record to all matching handlers, exact matches first.
// Handler errors are logged and do not stop subsequent handlers.
func (r *SubscriberRegistry) Notify(ctx context.Context, record *Record) {
	r.mu.RLock()
	matched := make([]*subscription, 0, len(r.subs[record.EventType])+len(r.subs[Wildcard]))
	matched = append(matched, r.subs[record.EventType]...)
	matched = append(matched, r.subs[Wildcard]...)
	r.mu.RUnlock()

	ctx = WithRecord(ctx, record)

	for _, sub := range matched {
		if sub.removed.Load() {
			continue
		}
		if err := sub.handler.Handle(ctx, record); err != nil {
			r.logger.ErrorContext(ctx, "subscriber handler failed",
				"event-type", record.EventType,
				"event-id", record.EventID,
				"stream", record.Stream(),
				"error", err,
			)
		}
	}
}

// Len returns the number of handlers subscribed to the given type.
func (r *SubscriberRegistry) Len(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[eventType])
}
