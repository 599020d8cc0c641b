package disk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	es "github.com/terraskye/eventlog"
	"github.com/terraskye/eventlog/fixtures"
	"github.com/terraskye/eventlog/storage/disk"
)

func newStorage(t *testing.T) *disk.Storage {
	t.Helper()
	storage, err := disk.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func collect(t *testing.T, iter *es.Iterator[*es.Record]) []*es.Record {
	t.Helper()
	records, err := iter.All(context.Background())
	if err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	return records
}

func TestInsert_VersionConflict(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()

	base := time.Now()
	if err := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.created", 1, base),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.duplicate", 1, base.Add(time.Second)),
	})
	if !errors.Is(err, es.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestInsert_AtomicBatch(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()

	base := time.Now()
	if err := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "B1", "order.created", 1, base),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Second record collides, so the first must be removed again.
	err := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.created", 1, base.Add(time.Second)),
		fixtures.Persisted("Order", "B1", "order.created", 1, base.Add(time.Second)),
	})
	if !errors.Is(err, es.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	iter, err := storage.ReadStream(ctx, "Order", "A1", 0)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if records := collect(t, iter); len(records) != 0 {
		t.Errorf("expected rolled-back record to be invisible, got %d", len(records))
	}
}

func TestRoundTrip(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()

	record := fixtures.NewRecord().
		WithStream("Order", "A1").
		WithType("order.created").
		WithPayload(map[string]any{"customer": "c-42"}).
		WithMetadata(map[string]any{"correlationId": "corr-1"}).
		WithVersion(1).
		Build()
	if err := storage.Insert(ctx, []*es.Record{record}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	iter, err := storage.ReadStream(ctx, "Order", "A1", 0)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	records := collect(t, iter)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.EventID != record.EventID {
		t.Errorf("event id changed: %s != %s", got.EventID, record.EventID)
	}
	if got.EventType != "order.created" || got.Version != 1 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Payload["customer"] != "c-42" {
		t.Errorf("payload lost: %v", got.Payload)
	}
	if got.Metadata["correlationId"] != "corr-1" {
		t.Errorf("metadata lost: %v", got.Metadata)
	}
}

func TestHighestVersion(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()

	base := time.Now()
	if err := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.created", 1, base),
		fixtures.Persisted("Order", "A1", "order.paid", 2, base.Add(time.Second)),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	highest, err := storage.HighestVersion(ctx, "Order", "A1")
	if err != nil {
		t.Fatalf("highest version: %v", err)
	}
	if highest != 2 {
		t.Errorf("expected 2, got %d", highest)
	}

	highest, err = storage.HighestVersion(ctx, "Order", "missing")
	if err != nil {
		t.Fatalf("highest version: %v", err)
	}
	if highest != 0 {
		t.Errorf("expected 0 for missing stream, got %d", highest)
	}
}

func TestReadByType_AcrossStreams(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()

	base := time.Now()
	if err := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.created", 1, base),
		fixtures.Persisted("Order", "A2", "order.created", 1, base.Add(time.Second)),
		fixtures.Persisted("Invoice", "I1", "invoice.created", 1, base.Add(2*time.Second)),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	iter, err := storage.ReadByType(ctx, "order.created", es.TypeQuery{})
	if err != nil {
		t.Fatalf("read by type: %v", err)
	}
	if records := collect(t, iter); len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestReadAll_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := disk.NewStorage(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	base := time.Now()
	if err := first.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.created", 1, base),
		fixtures.Persisted("Order", "A1", "order.paid", 2, base.Add(time.Second)),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := disk.NewStorage(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	iter, err := second.ReadAll(ctx, es.Window{})
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	records := collect(t, iter)
	if len(records) != 2 {
		t.Fatalf("expected 2 records after reopen, got %d", len(records))
	}
	if records[0].EventType != "order.created" || records[1].EventType != "order.paid" {
		t.Errorf("unexpected order: %s then %s", records[0].EventType, records[1].EventType)
	}
}

func TestClose_MakesStorageUnavailable(t *testing.T) {
	storage, err := disk.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	ctx := context.Background()

	if err := storage.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("expected idempotent close, got %v", err)
	}

	insertErr := storage.Insert(ctx, []*es.Record{
		fixtures.Persisted("Order", "A1", "order.created", 1, time.Now()),
	})
	if !errors.Is(insertErr, es.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable from Insert, got %v", insertErr)
	}
	if _, err := storage.ReadAll(ctx, es.Window{}); !errors.Is(err, es.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable from ReadAll, got %v", err)
	}
}
