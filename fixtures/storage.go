package fixtures

import (
	"context"
	"sync"

	es "github.com/terraskye/eventlog"
	"github.com/terraskye/eventlog/storage/memory"
)

// StorageSpy wraps the in-memory storage with call tracking and error
// injection, for exercising the Log's failure paths.
type StorageSpy struct {
	mu    sync.Mutex
	inner *memory.Storage

	// Function overrides for custom behavior. When nil the call is passed
	// through to the in-memory storage.
	InsertFn         func(ctx context.Context, records []*es.Record) error
	HighestVersionFn func(ctx context.Context, aggregateType, aggregateID string) (uint64, error)

	// Call tracking
	InsertCalls         int
	HighestVersionCalls int

	// Captured arguments from the last Insert
	LastInserted []*es.Record
}

// NewStorageSpy creates a spy around a fresh in-memory storage.
func NewStorageSpy() *StorageSpy {
	return &StorageSpy{inner: memory.NewStorage()}
}

// Seed inserts records directly, bypassing tracking and overrides.
func (s *StorageSpy) Seed(records ...*es.Record) *StorageSpy {
	if err := s.inner.Insert(context.Background(), records); err != nil {
		panic(err)
	}
	return s
}

// FailInsertTimes makes the next n Insert calls fail with err, then resumes
// normal behavior. Used to simulate transient conflicts and outages.
func (s *StorageSpy) FailInsertTimes(n int, err error) *StorageSpy {
	remaining := n
	s.InsertFn = func(ctx context.Context, records []*es.Record) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if remaining > 0 {
			remaining--
			return err
		}
		return s.inner.Insert(ctx, records)
	}
	return s
}

// Insert implements eventlog.Storage.
func (s *StorageSpy) Insert(ctx context.Context, records []*es.Record) error {
	s.mu.Lock()
	s.InsertCalls++
	s.LastInserted = records
	fn := s.InsertFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, records)
	}
	return s.inner.Insert(ctx, records)
}

// HighestVersion implements eventlog.Storage.
func (s *StorageSpy) HighestVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error) {
	s.mu.Lock()
	s.HighestVersionCalls++
	fn := s.HighestVersionFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, aggregateType, aggregateID)
	}
	return s.inner.HighestVersion(ctx, aggregateType, aggregateID)
}

// ReadStream implements eventlog.Storage.
func (s *StorageSpy) ReadStream(ctx context.Context, aggregateType, aggregateID string, fromVersion uint64) (*es.Iterator[*es.Record], error) {
	return s.inner.ReadStream(ctx, aggregateType, aggregateID, fromVersion)
}

// ReadByType implements eventlog.Storage.
func (s *StorageSpy) ReadByType(ctx context.Context, eventType string, q es.TypeQuery) (*es.Iterator[*es.Record], error) {
	return s.inner.ReadByType(ctx, eventType, q)
}

// ReadAll implements eventlog.Storage.
func (s *StorageSpy) ReadAll(ctx context.Context, window es.Window) (*es.Iterator[*es.Record], error) {
	return s.inner.ReadAll(ctx, window)
}

// Close implements eventlog.Storage.
func (s *StorageSpy) Close() error {
	return s.inner.Close()
}
