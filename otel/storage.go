package otel

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/terraskye/eventlog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var _ eventlog.Storage = (*TelemetryStorage)(nil)

// TelemetryStorage decorates a Storage with spans and metrics per operation.
type TelemetryStorage struct {
	next eventlog.Storage
}

// NewTelemetryStorage wraps the given storage.
func NewTelemetryStorage(next eventlog.Storage) *TelemetryStorage {
	return &TelemetryStorage{next: next}
}

// Insert traces the atomic commit and counts appended records and version
// conflicts.
func (t *TelemetryStorage) Insert(ctx context.Context, records []*eventlog.Record) error {
	var stream string
	if len(records) > 0 {
		stream = records[0].Stream()
	}

	ctx, span := tracer.Start(ctx, "eventlog.storage.insert",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("insert"),
			AttrStream.String(stream),
			AttrEventCount.Int(len(records)),
		),
	)
	defer span.End()

	start := time.Now()
	err := t.next.Insert(ctx, records)
	StorageDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(AttrOperation.String("insert")),
	)

	if err != nil {
		if errors.Is(err, eventlog.ErrVersionConflict) {
			ConcurrencyConflicts.Add(ctx, 1)
		} else {
			StorageErrors.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	EventsAppended.Add(ctx, int64(len(records)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// HighestVersion traces the stream-head read.
func (t *TelemetryStorage) HighestVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error) {
	ctx, span := tracer.Start(ctx, "eventlog.storage.highest_version",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("highest_version"),
			AttrAggregateType.String(aggregateType),
			AttrAggregateID.String(aggregateID),
		),
	)
	defer span.End()

	version, err := t.next.HighestVersion(ctx, aggregateType, aggregateID)
	if err != nil {
		StorageErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return version, err
	}

	span.SetAttributes(AttrStreamVersion.Int64(int64(version)))
	return version, nil
}

// ReadStream counts the records the returned iterator actually yields.
func (t *TelemetryStorage) ReadStream(ctx context.Context, aggregateType, aggregateID string, fromVersion uint64) (*eventlog.Iterator[*eventlog.Record], error) {
	iter, err := t.next.ReadStream(ctx, aggregateType, aggregateID, fromVersion)
	if err != nil {
		StorageErrors.Add(ctx, 1)
		return iter, err
	}
	return countingIterator(iter), nil
}

// ReadByType counts the records the returned iterator actually yields.
func (t *TelemetryStorage) ReadByType(ctx context.Context, eventType string, q eventlog.TypeQuery) (*eventlog.Iterator[*eventlog.Record], error) {
	iter, err := t.next.ReadByType(ctx, eventType, q)
	if err != nil {
		StorageErrors.Add(ctx, 1)
		return iter, err
	}
	return countingIterator(iter), nil
}

// ReadAll counts the records the returned iterator actually yields.
func (t *TelemetryStorage) ReadAll(ctx context.Context, window eventlog.Window) (*eventlog.Iterator[*eventlog.Record], error) {
	iter, err := t.next.ReadAll(ctx, window)
	if err != nil {
		StorageErrors.Add(ctx, 1)
		return iter, err
	}
	return countingIterator(iter), nil
}

// Close implements eventlog.Storage.
func (t *TelemetryStorage) Close() error {
	return t.next.Close()
}

func countingIterator(next *eventlog.Iterator[*eventlog.Record]) *eventlog.Iterator[*eventlog.Record] {
	return eventlog.NewIteratorFunc(func(ctx context.Context) (*eventlog.Record, error) {
		if !next.Next(ctx) {
			if err := next.Err(); err != nil {
				StorageErrors.Add(ctx, 1)
				return nil, err
			}
			return nil, io.EOF
		}
		EventsLoaded.Add(ctx, 1)
		return next.Value(), nil
	})
}
