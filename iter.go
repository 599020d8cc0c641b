package eventlog

import (
	"context"
	"io"
)

// Iterator is a lazy, pull-based cursor over items produced by a Storage
// read. Iteration stops when the producer returns io.EOF, when the context
// is canceled, or when the consumer stops calling Next.
//
// Iterators are single-use and not safe for concurrent consumption.
type Iterator[T any] struct {
	nextFunc func(ctx context.Context) (T, error)
	current  T
	err      error
}

// NewIteratorFunc creates an Iterator from a producer function. The producer
// returns io.EOF when exhausted.
func NewIteratorFunc[T any](nextFunc func(ctx context.Context) (T, error)) *Iterator[T] {
	return &Iterator[T]{nextFunc: nextFunc}
}

// NewSliceIterator creates an Iterator over a fixed slice.
func NewSliceIterator[T any](items []T) *Iterator[T] {
	index := 0
	return NewIteratorFunc(func(ctx context.Context) (T, error) {
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if index >= len(items) {
			return zero, io.EOF
		}
		item := items[index]
		index++
		return item, nil
	})
}

// Next advances the iterator. It returns false when the iterator is
// exhausted or an error occurred.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	it.current, it.err = it.nextFunc(ctx)
	return it.err == nil
}

// Value returns the item produced by the last successful Next.
func (it *Iterator[T]) Value() T {
	return it.current
}

// Err returns the error that terminated iteration, or nil if the iterator
// finished cleanly or has not finished yet. io.EOF is not reported as an
// error.
func (it *Iterator[T]) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

// All consumes the iterator and returns the remaining items.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	var results []T
	for it.Next(ctx) {
		results = append(results, it.Value())
	}
	return results, it.Err()
}
