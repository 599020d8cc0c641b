package logging

import (
	"context"
	"log/slog"

	"github.com/terraskye/eventlog"
)

type loggedProjection struct {
	name   string
	logger *slog.Logger
	next   eventlog.Projection
}

// WithProjectionLogging wraps a projection so every apply is logged under
// the projection's name.
func WithProjectionLogging(logger *slog.Logger, name string, next eventlog.Projection) eventlog.Projection {
	return &loggedProjection{name: name, logger: logger, next: next}
}

func (p *loggedProjection) Handles() []string {
	return p.next.Handles()
}

func (p *loggedProjection) Apply(ctx context.Context, record *eventlog.Record) error {
	err := p.next.Apply(ctx, record)
	if err != nil {
		p.logger.ErrorContext(ctx, "projection apply failed",
			"projection", p.name,
			"event-type", record.EventType,
			"event-id", record.EventID,
			"error", err,
		)
		return err
	}
	p.logger.DebugContext(ctx, "projection applied record",
		"projection", p.name,
		"event-type", record.EventType,
		"version", record.Version,
	)
	return nil
}
