package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/terraskye/eventlog"
)

var _ eventlog.Storage = (*Storage)(nil)

// Storage is the in-memory reference implementation of eventlog.Storage:
// per-stream slices plus a global timestamp-ordered slice, with a uniqueness
// index on (aggregateType, aggregateId, version) and all-or-nothing inserts.
//
// Records are copied on insert and again on read, so stored facts cannot be
// mutated through the pointers the caller keeps on either side. Reads
// snapshot under RLock and iterate outside of it, so rebuild cursors never
// block appends.
type Storage struct {
	mu       sync.RWMutex
	closed   bool
	streams  map[string][]*eventlog.Record
	global   []*eventlog.Record
	versions map[string]struct{} // stream "/" version
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		streams:  make(map[string][]*eventlog.Record),
		global:   make([]*eventlog.Record, 0),
		versions: make(map[string]struct{}),
	}
}

func versionKey(r *eventlog.Record) string {
	return fmt.Sprintf("%s/%s/%d", r.AggregateType, r.AggregateID, r.Version)
}

func streamKey(aggregateType, aggregateID string) string {
	return aggregateType + "/" + aggregateID
}

// Insert implements eventlog.Storage. The uniqueness check over the whole
// batch runs before any record is stored, which makes the commit atomic:
// either every record becomes visible or none.
func (s *Storage) Insert(ctx context.Context, records []*eventlog.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return eventlog.ErrStorageUnavailable
	}
	if len(records) == 0 {
		return nil
	}

	staged := make(map[string]struct{}, len(records))
	for _, record := range records {
		key := versionKey(record)
		if _, exists := s.versions[key]; exists {
			return fmt.Errorf("insert %s: %w", key, eventlog.ErrVersionConflict)
		}
		if _, dup := staged[key]; dup {
			return fmt.Errorf("insert %s: duplicate in batch: %w", key, eventlog.ErrVersionConflict)
		}
		staged[key] = struct{}{}
	}

	for _, record := range records {
		stored := *record
		stored.Payload = copyMap(record.Payload)
		stored.Metadata = copyMap(record.Metadata)

		stream := streamKey(record.AggregateType, record.AggregateID)
		s.streams[stream] = append(s.streams[stream], &stored)
		s.global = append(s.global, &stored)
		s.versions[versionKey(record)] = struct{}{}
	}

	// Same-timestamp inserts keep arrival order.
	sort.SliceStable(s.global, func(i, j int) bool {
		return s.global[i].Timestamp.Before(s.global[j].Timestamp)
	})

	return nil
}

// HighestVersion implements eventlog.Storage.
func (s *Storage) HighestVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, eventlog.ErrStorageUnavailable
	}

	stream := s.streams[streamKey(aggregateType, aggregateID)]
	var highest uint64
	for _, record := range stream {
		if record.Version > highest {
			highest = record.Version
		}
	}
	return highest, nil
}

// ReadStream implements eventlog.Storage.
func (s *Storage) ReadStream(ctx context.Context, aggregateType, aggregateID string, fromVersion uint64) (*eventlog.Iterator[*eventlog.Record], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventlog.ErrStorageUnavailable
	}

	stream := s.streams[streamKey(aggregateType, aggregateID)]
	matched := make([]*eventlog.Record, 0, len(stream))
	for _, record := range stream {
		if record.Version > fromVersion {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Version < matched[j].Version
	})

	return eventlog.NewSliceIterator(copyRecords(matched)), nil
}

// ReadByType implements eventlog.Storage.
func (s *Storage) ReadByType(ctx context.Context, eventType string, q eventlog.TypeQuery) (*eventlog.Iterator[*eventlog.Record], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventlog.ErrStorageUnavailable
	}

	matched := make([]*eventlog.Record, 0)
	for _, record := range s.global {
		if record.EventType != eventType {
			continue
		}
		if !q.From.IsZero() && record.Timestamp.Before(q.From) {
			continue
		}
		matched = append(matched, record)
	}

	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	return eventlog.NewSliceIterator(copyRecords(matched)), nil
}

// ReadAll implements eventlog.Storage. The cursor iterates over a snapshot
// taken at call time; records appended afterwards are not part of the pass.
func (s *Storage) ReadAll(ctx context.Context, window eventlog.Window) (*eventlog.Iterator[*eventlog.Record], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventlog.ErrStorageUnavailable
	}

	matched := make([]*eventlog.Record, 0, len(s.global))
	for _, record := range s.global {
		if !window.From.IsZero() && record.Timestamp.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && record.Timestamp.After(window.To) {
			continue
		}
		matched = append(matched, record)
	}

	return eventlog.NewSliceIterator(copyRecords(matched)), nil
}

// Close implements eventlog.Storage. It is idempotent; all later operations
// return ErrStorageUnavailable.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyRecords(records []*eventlog.Record) []*eventlog.Record {
	out := make([]*eventlog.Record, len(records))
	for i, record := range records {
		copied := *record
		copied.Payload = copyMap(record.Payload)
		copied.Metadata = copyMap(record.Metadata)
		out[i] = &copied
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
