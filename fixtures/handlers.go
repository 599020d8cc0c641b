package fixtures

import (
	"context"
	"sync"

	es "github.com/terraskye/eventlog"
)

// HandlerSpy records every record it receives, for asserting fan-out order
// and delivery counts.
type HandlerSpy struct {
	mu       sync.Mutex
	received []*es.Record
	err      error
}

// NewHandlerSpy creates a spy that succeeds on every delivery.
func NewHandlerSpy() *HandlerSpy {
	return &HandlerSpy{}
}

// FailWith makes every subsequent delivery return err.
func (h *HandlerSpy) FailWith(err error) *HandlerSpy {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
	return h
}

// Handle implements eventlog.Handler.
func (h *HandlerSpy) Handle(ctx context.Context, record *es.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, record)
	return h.err
}

// Received returns a copy of all records received so far.
func (h *HandlerSpy) Received() []*es.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*es.Record, len(h.received))
	copy(out, h.received)
	return out
}

// Count returns the number of deliveries so far.
func (h *HandlerSpy) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

// ProjectionSpy is an upsert-style projection over a map, keyed by
// aggregate id. Applying the same record twice leaves the state unchanged,
// matching the rebuild idempotence contract.
type ProjectionSpy struct {
	mu      sync.Mutex
	handles []string
	State   map[string]map[string]any
	err     error
}

// NewProjectionSpy creates a projection handling the given event types.
func NewProjectionSpy(handles ...string) *ProjectionSpy {
	return &ProjectionSpy{
		handles: handles,
		State:   make(map[string]map[string]any),
	}
}

// FailWith makes every subsequent apply return err.
func (p *ProjectionSpy) FailWith(err error) *ProjectionSpy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// Handles implements eventlog.Projection.
func (p *ProjectionSpy) Handles() []string {
	return p.handles
}

// Apply implements eventlog.Projection with an upsert per aggregate id.
func (p *ProjectionSpy) Apply(ctx context.Context, record *es.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	state := make(map[string]any, len(record.Payload)+1)
	for k, v := range record.Payload {
		state[k] = v
	}
	state["lastVersion"] = record.Version
	p.State[record.AggregateID] = state
	return nil
}

// Snapshot returns a deep copy of the projection state, for comparing two
// rebuild passes.
func (p *ProjectionSpy) Snapshot() map[string]map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]map[string]any, len(p.State))
	for id, state := range p.State {
		copied := make(map[string]any, len(state))
		for k, v := range state {
			copied[k] = v
		}
		out[id] = copied
	}
	return out
}
