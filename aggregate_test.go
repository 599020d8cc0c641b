package eventlog_test

import (
	"context"
	"testing"

	es "github.com/terraskye/eventlog"
	"github.com/terraskye/eventlog/storage/memory"
)

// order is a small event-sourced aggregate used across the aggregate and
// repository tests.
type order struct {
	*es.AggregateBase

	status string
	total  int
	paid   int
}

func newOrder(id string) *order {
	return &order{AggregateBase: es.NewAggregateBase("Order", id)}
}

func (o *order) HandleEvent(record *es.Record) {
	switch record.EventType {
	case "order.created":
		o.status = "created"
		o.total = record.Payload["total"].(int)
	case "order.paid":
		o.status = "paid"
		o.paid += record.Payload["amount"].(int)
	case "order.shipped":
		o.status = "shipped"
	}
}

func (o *order) Create(total int) {
	o.AppendEvent(o, "order.created", map[string]any{"total": total})
}

func (o *order) Pay(amount int) {
	o.AppendEvent(o, "order.paid", map[string]any{"amount": amount})
}

func TestAppendEvent_TracksUncommittedChanges(t *testing.T) {
	o := newOrder("A1")
	o.Create(10)
	o.Pay(10)

	changes := o.UncommittedEvents()
	if len(changes) != 2 {
		t.Fatalf("expected 2 uncommitted events, got %d", len(changes))
	}
	if changes[0].EventType != "order.created" || changes[1].EventType != "order.paid" {
		t.Errorf("unexpected change order: %q, %q", changes[0].EventType, changes[1].EventType)
	}
	if o.AggregateVersion() != 2 {
		t.Errorf("expected version 2, got %d", o.AggregateVersion())
	}
	if o.status != "paid" || o.total != 10 || o.paid != 10 {
		t.Errorf("unexpected domain state: %q %d %d", o.status, o.total, o.paid)
	}
}

func TestAppendEvent_StampsStreamIdentity(t *testing.T) {
	o := newOrder("A1")
	o.Create(10)

	change := o.UncommittedEvents()[0]
	if change.AggregateType != "Order" || change.AggregateID != "A1" {
		t.Errorf("expected stream Order/A1, got %s/%s", change.AggregateType, change.AggregateID)
	}
	if change.Version != 0 {
		t.Errorf("expected no version before append, got %d", change.Version)
	}
}

func TestClearUncommittedEvents(t *testing.T) {
	o := newOrder("A1")
	o.Create(10)

	o.ClearUncommittedEvents()

	if len(o.UncommittedEvents()) != 0 {
		t.Errorf("expected no uncommitted events, got %d", len(o.UncommittedEvents()))
	}
	if o.AggregateVersion() != 1 {
		t.Errorf("expected version to survive the clear, got %d", o.AggregateVersion())
	}
}

func TestApply_NotNewIsNotQueued(t *testing.T) {
	o := newOrder("A1")
	record := es.NewRecord("order.created", "Order", "A1", map[string]any{"total": 5})

	o.Apply(o, record, false)

	if len(o.UncommittedEvents()) != 0 {
		t.Errorf("expected replayed event not to be queued, got %d", len(o.UncommittedEvents()))
	}
	if o.AggregateVersion() != 1 {
		t.Errorf("expected version 1, got %d", o.AggregateVersion())
	}
	if o.total != 5 {
		t.Errorf("expected domain state applied, total %d", o.total)
	}
}

func TestLoadFromHistory_ReplayEquivalence(t *testing.T) {
	log := es.NewLog(memory.NewStorage())
	defer log.Close()
	ctx := context.Background()

	live := newOrder("A1")
	live.Create(10)
	live.Pay(10)
	if err := log.AppendMany(ctx, live.UncommittedEvents()); err != nil {
		t.Fatalf("append many: %v", err)
	}
	live.ClearUncommittedEvents()

	iter, err := log.GetEvents(ctx, "Order", "A1", 0)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}

	replayed := newOrder("A1")
	if err := replayed.LoadFromHistory(ctx, replayed, iter); err != nil {
		t.Fatalf("load from history: %v", err)
	}

	if replayed.AggregateVersion() != live.AggregateVersion() {
		t.Errorf("version mismatch: live %d, replayed %d", live.AggregateVersion(), replayed.AggregateVersion())
	}
	if replayed.status != live.status || replayed.total != live.total || replayed.paid != live.paid {
		t.Errorf("state mismatch: live %q/%d/%d, replayed %q/%d/%d",
			live.status, live.total, live.paid, replayed.status, replayed.total, replayed.paid)
	}
	if len(replayed.UncommittedEvents()) != 0 {
		t.Errorf("expected replay not to queue changes, got %d", len(replayed.UncommittedEvents()))
	}
}

func TestLoadFromHistory_Deterministic(t *testing.T) {
	records := []*es.Record{
		es.NewRecord("order.created", "Order", "A1", map[string]any{"total": 10}),
		es.NewRecord("order.paid", "Order", "A1", map[string]any{"amount": 4}),
		es.NewRecord("order.paid", "Order", "A1", map[string]any{"amount": 6}),
	}

	first := newOrder("A1")
	first.LoadFromRecords(first, records)

	second := newOrder("A1")
	second.LoadFromRecords(second, records)

	if first.paid != second.paid || first.status != second.status {
		t.Errorf("replays diverged: %q/%d vs %q/%d", first.status, first.paid, second.status, second.paid)
	}
	if first.AggregateVersion() != 3 || second.AggregateVersion() != 3 {
		t.Errorf("expected both at version 3, got %d and %d", first.AggregateVersion(), second.AggregateVersion())
	}
}

func TestHydrate_RoutesByType(t *testing.T) {
	var created, paid int
	handle := es.Hydrate(
		es.On("order.created", func(record *es.Record) { created++ }),
		es.On("order.paid", func(record *es.Record) { paid++ }),
	)

	handle(es.NewRecord("order.created", "Order", "A1", map[string]any{}))
	handle(es.NewRecord("order.paid", "Order", "A1", map[string]any{}))
	handle(es.NewRecord("order.unknown", "Order", "A1", map[string]any{}))

	if created != 1 || paid != 1 {
		t.Errorf("expected one dispatch each, got %d and %d", created, paid)
	}
}
