package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Projection is a named read-model builder. Handles is the allow-list of
// event types it consumes; Apply mutates the projection's own external
// state.
//
// Apply must be idempotent per record: a rebuild re-streams history, so
// reapplying the same record must produce the same state (upsert-style, not
// increment-style). The engine assumes this contract but cannot enforce it.
type Projection interface {
	Handles() []string
	Apply(ctx context.Context, record *Record) error
}

type projectionFunc struct {
	handles []string
	apply   func(ctx context.Context, record *Record) error
}

func (p *projectionFunc) Handles() []string { return p.handles }

func (p *projectionFunc) Apply(ctx context.Context, record *Record) error {
	return p.apply(ctx, record)
}

// NewProjection creates a Projection from an event-type allow-list and an
// apply function.
func NewProjection(handles []string, apply func(ctx context.Context, record *Record) error) Projection {
	return &projectionFunc{handles: handles, apply: apply}
}

// RebuildOption bounds a rebuild pass.
type RebuildOption func(*Window)

// WithRebuildFrom excludes records with a timestamp before t.
func WithRebuildFrom(t time.Time) RebuildOption {
	return func(w *Window) { w.From = t }
}

// WithRebuildTo excludes records with a timestamp after t. Callers needing
// an exact snapshot under concurrent appends should bound the pass with an
// explicit window rather than relying on "now".
func WithRebuildTo(t time.Time) RebuildOption {
	return func(w *Window) { w.To = t }
}

// ProjectionEngine maintains named projections built by replaying the log.
// The engine owns only the iteration mechanics; projection state lives in
// whatever store the projection's Apply writes to.
//
// Projections are state of one engine instance, not of the process.
type ProjectionEngine struct {
	storage Storage
	logger  *slog.Logger

	mu          sync.RWMutex
	projections map[string]Projection
}

// NewProjectionEngine creates an engine reading from the given storage. A
// nil logger defaults to slog.Default().
func NewProjectionEngine(storage Storage, logger *slog.Logger) *ProjectionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectionEngine{
		storage:     storage,
		logger:      logger,
		projections: make(map[string]Projection),
	}
}

// Register adds a named projection. Registering a name twice returns
// ErrDuplicateProjection.
func (e *ProjectionEngine) Register(name string, p Projection) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.projections[name]; exists {
		return ErrDuplicateProjection
	}
	e.projections[name] = p
	return nil
}

// Rebuild streams the log in ascending timestamp order, filters to the
// projection's event types and applies each record sequentially. It returns
// the number of records applied.
//
// The pass is read-only and acquires no lock that blocks appends; a rebuild
// started "now" may miss or include records appended while it runs. An apply
// failure aborts the pass and is reported as *ProjectionApplyError carrying
// the partial count; the engine never auto-retries.
func (e *ProjectionEngine) Rebuild(ctx context.Context, name string, opts ...RebuildOption) (int, error) {
	e.mu.RLock()
	p, ok := e.projections[name]
	e.mu.RUnlock()
	if !ok {
		return 0, ErrProjectionNotFound
	}

	var window Window
	for _, opt := range opts {
		opt(&window)
	}

	iter, err := e.storage.ReadAll(ctx, window)
	if err != nil {
		return 0, WrapStorageError(err)
	}

	handled := handleSet(p.Handles())

	applied := 0
	for iter.Next(ctx) {
		record := iter.Value()
		if !handled[record.EventType] {
			continue
		}
		if err := p.Apply(ctx, record); err != nil {
			e.logger.ErrorContext(ctx, "projection apply failed",
				"projection", name,
				"event-type", record.EventType,
				"event-id", record.EventID,
				"applied", applied,
				"error", err,
			)
			return applied, &ProjectionApplyError{Projection: name, Applied: applied, Err: err}
		}
		applied++
	}
	if err := iter.Err(); err != nil {
		// A canceled pass is the caller's doing, not a storage failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return applied, err
		}
		return applied, WrapStorageError(err)
	}

	e.logger.DebugContext(ctx, "projection rebuilt",
		"projection", name,
		"applied", applied,
	)
	return applied, nil
}

// Attach returns a Handler that feeds the named projection live from a
// subscriber registry, with the same type filtering as Rebuild. Subscribe it
// under Wildcard so the projection sees every type it handles:
//
//	h, _ := engine.Attach("orders")
//	unsubscribe := log.Subscribe(eventlog.Wildcard, h)
//
// Live delivery is best effort; the durable path remains Rebuild.
func (e *ProjectionEngine) Attach(name string) (Handler, error) {
	e.mu.RLock()
	p, ok := e.projections[name]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrProjectionNotFound
	}

	handled := handleSet(p.Handles())

	return HandlerFunc(func(ctx context.Context, record *Record) error {
		if !handled[record.EventType] {
			return nil
		}
		return p.Apply(ctx, record)
	}), nil
}

func handleSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
