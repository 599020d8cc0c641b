package eventlog_test

import (
	"context"
	"errors"
	"io"
	"testing"

	es "github.com/terraskye/eventlog"
)

func TestSliceIterator(t *testing.T) {
	iter := es.NewSliceIterator([]int{1, 2, 3})

	values, err := iter.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(values) != 3 || values[0] != 1 || values[2] != 3 {
		t.Errorf("unexpected values: %v", values)
	}
}

func TestIterator_EOFIsNotAnError(t *testing.T) {
	iter := es.NewSliceIterator([]int{})

	if iter.Next(context.Background()) {
		t.Error("expected empty iterator")
	}
	if err := iter.Err(); err != nil {
		t.Errorf("expected nil error on clean exhaustion, got %v", err)
	}
}

func TestIterator_PropagatesProducerError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	iter := es.NewIteratorFunc(func(ctx context.Context) (int, error) {
		calls++
		if calls > 1 {
			return 0, boom
		}
		return 42, nil
	})

	ctx := context.Background()
	if !iter.Next(ctx) {
		t.Fatal("expected first item")
	}
	if iter.Value() != 42 {
		t.Errorf("expected 42, got %d", iter.Value())
	}
	if iter.Next(ctx) {
		t.Error("expected iteration to stop on error")
	}
	if !errors.Is(iter.Err(), boom) {
		t.Errorf("expected producer error, got %v", iter.Err())
	}
	// Next after an error stays stopped without calling the producer again.
	if iter.Next(ctx) {
		t.Error("expected iterator to stay stopped")
	}
	if calls != 2 {
		t.Errorf("expected 2 producer calls, got %d", calls)
	}
}

func TestIterator_ContextCancellation(t *testing.T) {
	iter := es.NewSliceIterator([]int{1, 2, 3})
	ctx, cancel := context.WithCancel(context.Background())

	if !iter.Next(ctx) {
		t.Fatal("expected first item")
	}
	cancel()
	if iter.Next(ctx) {
		t.Error("expected iteration to stop after cancellation")
	}
	if !errors.Is(iter.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", iter.Err())
	}
}

func TestIteratorFunc_EOFTermination(t *testing.T) {
	items := []string{"a", "b"}
	index := 0
	iter := es.NewIteratorFunc(func(ctx context.Context) (string, error) {
		if index >= len(items) {
			return "", io.EOF
		}
		item := items[index]
		index++
		return item, nil
	})

	values, err := iter.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("expected 2 values, got %d", len(values))
	}
}
