package eventlog_test

import (
	"errors"
	"testing"

	es "github.com/terraskye/eventlog"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		record *es.Record
		field  string
	}{
		{
			name:   "missing event type",
			record: es.NewRecord("", "Order", "A1", map[string]any{}),
			field:  "eventType",
		},
		{
			name:   "missing aggregate type",
			record: es.NewRecord("order.created", "", "A1", map[string]any{}),
			field:  "aggregateType",
		},
		{
			name:   "missing aggregate id",
			record: es.NewRecord("order.created", "Order", "", map[string]any{}),
			field:  "aggregateId",
		},
		{
			name:   "nil payload",
			record: es.NewRecord("order.created", "Order", "A1", nil),
			field:  "payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			var verr *es.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestValidate_CompleteRecord(t *testing.T) {
	record := es.NewRecord("order.created", "Order", "A1", map[string]any{"total": 10})
	if err := record.Validate(); err != nil {
		t.Errorf("expected valid record, got %v", err)
	}
}

func TestNewRecord_Options(t *testing.T) {
	record := es.NewRecord("order.created", "Order", "A1", map[string]any{},
		es.WithActorID("user-1"),
		es.WithCorrelationID("corr-1"),
		es.WithCausationID("cause-1"),
		es.WithSource("billing"),
		es.WithMetadata(map[string]any{"tenant": "acme"}),
	)

	want := map[string]any{
		"actorId":       "user-1",
		"correlationId": "corr-1",
		"causationId":   "cause-1",
		"source":        "billing",
		"tenant":        "acme",
	}
	for k, v := range want {
		if record.Metadata[k] != v {
			t.Errorf("metadata %q: expected %v, got %v", k, v, record.Metadata[k])
		}
	}
}

func TestStream(t *testing.T) {
	record := es.NewRecord("order.created", "Order", "A1", map[string]any{})
	if record.Stream() != "Order/A1" {
		t.Errorf("expected Order/A1, got %q", record.Stream())
	}
}
