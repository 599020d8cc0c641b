// Package disk is a file-backed Storage for development and small
// deployments. Every record is one JSON file named by its version inside a
// directory per stream, so the uniqueness constraint on
// (aggregateType, aggregateId, version) is the file system's "file already
// exists" check.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/eventlog"
)

var _ eventlog.Storage = (*Storage)(nil)

// storedRecord is the on-disk JSON shape of a Record.
type storedRecord struct {
	EventID         uuid.UUID      `json:"eventId"`
	EventType       string         `json:"eventType"`
	AggregateType   string         `json:"aggregateType"`
	AggregateID     string         `json:"aggregateId"`
	Payload         map[string]any `json:"payload"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Version         uint64         `json:"version"`
	Timestamp       time.Time      `json:"timestamp"`
	Processed       bool           `json:"processed,omitempty"`
	ProcessingError string         `json:"processingError,omitempty"`
}

// Storage persists records under baseDir/<aggregateType>/<aggregateId>/.
type Storage struct {
	baseDir string
	mu      sync.Mutex
	closed  bool
}

// NewStorage creates the base directory if needed.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &Storage{baseDir: dir}, nil
}

func (s *Storage) streamDir(aggregateType, aggregateID string) string {
	return filepath.Join(s.baseDir, aggregateType, aggregateID)
}

func recordFile(version uint64) string {
	return fmt.Sprintf("%010d.json", version)
}

// Insert implements eventlog.Storage. Files are written one by one; on any
// failure, including a version collision, every file written so far in this
// batch is removed again, which keeps the commit all-or-nothing.
func (s *Storage) Insert(ctx context.Context, records []*eventlog.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return eventlog.ErrStorageUnavailable
	}

	written := make([]string, 0, len(records))
	rollback := func() {
		for _, path := range written {
			os.Remove(path)
		}
	}

	for _, record := range records {
		dir := s.streamDir(record.AggregateType, record.AggregateID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			rollback()
			return fmt.Errorf("%w: %v", eventlog.ErrStorageUnavailable, err)
		}

		data, err := json.Marshal(toStored(record))
		if err != nil {
			rollback()
			return fmt.Errorf("encode record %s: %w", record.EventID, err)
		}

		path := filepath.Join(dir, recordFile(record.Version))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			rollback()
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("insert %s version %d: %w", record.Stream(), record.Version, eventlog.ErrVersionConflict)
			}
			return fmt.Errorf("%w: %v", eventlog.ErrStorageUnavailable, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			rollback()
			os.Remove(path)
			return fmt.Errorf("%w: write %s", eventlog.ErrStorageUnavailable, path)
		}
		written = append(written, path)
	}

	return nil
}

// HighestVersion implements eventlog.Storage.
func (s *Storage) HighestVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, eventlog.ErrStorageUnavailable
	}

	entries, err := os.ReadDir(s.streamDir(aggregateType, aggregateID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", eventlog.ErrStorageUnavailable, err)
	}

	var highest uint64
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		if name == entry.Name() {
			continue
		}
		version, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		if version > highest {
			highest = version
		}
	}
	return highest, nil
}

// ReadStream implements eventlog.Storage.
func (s *Storage) ReadStream(ctx context.Context, aggregateType, aggregateID string, fromVersion uint64) (*eventlog.Iterator[*eventlog.Record], error) {
	records, err := s.readStreamDir(aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}

	matched := records[:0]
	for _, record := range records {
		if record.Version > fromVersion {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Version < matched[j].Version
	})
	return eventlog.NewSliceIterator(matched), nil
}

// ReadByType implements eventlog.Storage.
func (s *Storage) ReadByType(ctx context.Context, eventType string, q eventlog.TypeQuery) (*eventlog.Iterator[*eventlog.Record], error) {
	all, err := s.readEverything()
	if err != nil {
		return nil, err
	}

	matched := make([]*eventlog.Record, 0)
	for _, record := range all {
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
	return eventlog.NewSliceIterator(matched), nil
}

// ReadAll implements eventlog.Storage.
func (s *Storage) ReadAll(ctx context.Context, window eventlog.Window) (*eventlog.Iterator[*eventlog.Record], error) {
	all, err := s.readEverything()
	if err != nil {
		return nil, err
	}

	matched := make([]*eventlog.Record, 0, len(all))
	for _, record := range all {
		if !window.From.IsZero() && record.Timestamp.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && record.Timestamp.After(window.To) {
			continue
		}
		matched = append(matched, record)
	}
	return eventlog.NewSliceIterator(matched), nil
}

// Close implements eventlog.Storage. It is idempotent.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Storage) readStreamDir(aggregateType, aggregateID string) ([]*eventlog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, eventlog.ErrStorageUnavailable
	}

	dir := s.streamDir(aggregateType, aggregateID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", eventlog.ErrStorageUnavailable, err)
	}

	records := make([]*eventlog.Record, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		record, err := readRecordFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Storage) readEverything() ([]*eventlog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, eventlog.ErrStorageUnavailable
	}

	var records []*eventlog.Record
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		record, rerr := readRecordFile(path)
		if rerr != nil {
			return rerr
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", eventlog.ErrStorageUnavailable, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

func readRecordFile(path string) (*eventlog.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", eventlog.ErrStorageUnavailable, err)
	}
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fromStored(&stored), nil
}

func toStored(record *eventlog.Record) *storedRecord {
	return &storedRecord{
		EventID:         record.EventID,
		EventType:       record.EventType,
		AggregateType:   record.AggregateType,
		AggregateID:     record.AggregateID,
		Payload:         record.Payload,
		Metadata:        record.Metadata,
		Version:         record.Version,
		Timestamp:       record.Timestamp,
		Processed:       record.Processed,
		ProcessingError: record.ProcessingError,
	}
}

func fromStored(stored *storedRecord) *eventlog.Record {
	return &eventlog.Record{
		EventID:         stored.EventID,
		EventType:       stored.EventType,
		AggregateType:   stored.AggregateType,
		AggregateID:     stored.AggregateID,
		Payload:         stored.Payload,
		Metadata:        stored.Metadata,
		Version:         stored.Version,
		Timestamp:       stored.Timestamp,
		Processed:       stored.Processed,
		ProcessingError: stored.ProcessingError,
	}
}
