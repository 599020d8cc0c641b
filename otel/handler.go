package otel

import (
	"context"
	"time"

	"github.com/terraskye/eventlog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// WithHandlerTelemetry wraps a subscriber handler with a span and duration,
// count and error metrics per handled record.
func WithHandlerTelemetry(next eventlog.Handler) eventlog.Handler {
	return eventlog.HandlerFunc(func(ctx context.Context, record *eventlog.Record) error {
		attrs := metric.WithAttributes(AttrEventType.String(record.EventType))

		ctx, span := tracer.Start(ctx, "eventlog.subscriber.handle "+record.EventType,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				AttrEventType.String(record.EventType),
				AttrEventID.String(record.EventID.String()),
				AttrStream.String(record.Stream()),
				AttrStreamVersion.Int64(int64(record.Version)),
			),
		)
		defer span.End()

		start := time.Now()
		err := next.Handle(ctx, record)

		SubscriberDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		SubscribersHandled.Add(ctx, 1, attrs)

		if err != nil {
			SubscriberErrors.Add(ctx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	})
}
