package logging

import (
	"context"
	"log/slog"

	"github.com/terraskye/eventlog"
)

// WithHandlerLogging wraps a subscriber handler with structured logging of
// each delivery, annotated from the record context set by the registry.
func WithHandlerLogging(logger *slog.Logger, next eventlog.Handler) eventlog.Handler {
	return eventlog.HandlerFunc(func(ctx context.Context, record *eventlog.Record) error {
		l := logger.With(
			"stream", eventlog.StreamFromContext(ctx),
			"event-id", eventlog.EventIDFromContext(ctx),
			"event-type", record.EventType,
			"version", eventlog.VersionFromContext(ctx),
			"causation", eventlog.CausationFromContext(ctx),
		)

		l.DebugContext(ctx, "record delivery started")

		err := next.Handle(ctx, record)

		if err != nil {
			l.ErrorContext(ctx, "error handling record", "error", err)
		} else {
			l.DebugContext(ctx, "record handled")
		}

		return err
	})
}
