package eventlog_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	es "github.com/terraskye/eventlog"
)

func TestConcurrencyConflictError_UnwrapsToVersionConflict(t *testing.T) {
	err := &es.ConcurrencyConflictError{AggregateType: "Order", AggregateID: "A1", Attempts: 3}

	if !errors.Is(err, es.ErrVersionConflict) {
		t.Error("expected ConcurrencyConflictError to match ErrVersionConflict")
	}
	if !strings.Contains(err.Error(), "Order/A1") {
		t.Errorf("expected stream in message, got %q", err.Error())
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial: %w", es.ErrStorageUnavailable)
	err := es.WrapStorageError(cause)

	var serr *es.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %T", err)
	}
	if !errors.Is(err, es.ErrStorageUnavailable) {
		t.Error("expected wrapped sentinel to be reachable")
	}
}

func TestWrapStorageError_NilPassthrough(t *testing.T) {
	if err := es.WrapStorageError(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestProjectionApplyError(t *testing.T) {
	cause := errors.New("boom")
	err := &es.ProjectionApplyError{Projection: "orders", Applied: 7, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via Unwrap")
	}
	if !strings.Contains(err.Error(), "orders") || !strings.Contains(err.Error(), "7") {
		t.Errorf("expected projection name and count in message, got %q", err.Error())
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &es.ValidationError{Field: "eventType", Reason: "must not be empty"}
	if !strings.Contains(err.Error(), "eventType") {
		t.Errorf("expected field in message, got %q", err.Error())
	}
}
