// Package otel instruments the event log with OpenTelemetry traces and
// metrics. Wrap a Storage with NewTelemetryStorage and handlers with
// WithHandlerTelemetry; the decorators are transparent to the core.
package otel

import (
	"github.com/terraskye/eventlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/terraskye/eventlog"

// Semantic attribute keys following OpenTelemetry conventions
const (
	AttrAggregateType = attribute.Key("eventlog.aggregate.type")
	AttrAggregateID   = attribute.Key("eventlog.aggregate.id")
	AttrStream        = attribute.Key("eventlog.stream")
	AttrStreamVersion = attribute.Key("eventlog.stream.version")

	AttrEventType  = attribute.Key("eventlog.event.type")
	AttrEventID    = attribute.Key("eventlog.event.id")
	AttrEventCount = attribute.Key("eventlog.events.count")

	AttrProjectionName = attribute.Key("eventlog.projection.name")
	AttrAppliedCount   = attribute.Key("eventlog.projection.applied")

	AttrOperation = attribute.Key("eventlog.operation")
)

var (
	meter  = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(eventlog.InstrumentationVersion))
	tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(eventlog.InstrumentationVersion))

	EventsAppended, _ = meter.Int64Counter(
		"eventlog.events.appended",
		metric.WithDescription("Number of records appended to streams"),
		metric.WithUnit("{event}"),
	)

	EventsLoaded, _ = meter.Int64Counter(
		"eventlog.events.loaded",
		metric.WithDescription("Number of records loaded from streams"),
		metric.WithUnit("{event}"),
	)

	StorageDuration, _ = meter.Float64Histogram(
		"eventlog.storage.duration",
		metric.WithDescription("Storage operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)

	StorageErrors, _ = meter.Int64Counter(
		"eventlog.storage.errors",
		metric.WithDescription("Number of storage operation failures"),
		metric.WithUnit("{error}"),
	)

	ConcurrencyConflicts, _ = meter.Int64Counter(
		"eventlog.conflicts",
		metric.WithDescription("Number of version conflicts observed at the storage boundary"),
		metric.WithUnit("{conflict}"),
	)

	SubscribersHandled, _ = meter.Int64Counter(
		"eventlog.subscribers.handled",
		metric.WithDescription("Number of records handled by subscribers"),
		metric.WithUnit("{event}"),
	)

	SubscriberErrors, _ = meter.Int64Counter(
		"eventlog.subscribers.errors",
		metric.WithDescription("Number of subscriber handler errors"),
		metric.WithUnit("{error}"),
	)

	SubscriberDuration, _ = meter.Float64Histogram(
		"eventlog.subscribers.duration",
		metric.WithDescription("Subscriber handler duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
)
