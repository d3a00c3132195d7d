package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Ensure RecordStore implements the interfaces.
var (
	_ driven.RecordStore[domain.Person]   = (*RecordStore[domain.Person])(nil)
	_ driven.Archiver[domain.Person]      = (*RecordStore[domain.Person])(nil)
	_ driven.RecordStore[domain.Location] = (*RecordStore[domain.Location])(nil)
)

// RecordStore is an in-memory implementation of driven.RecordStore and
// driven.Archiver for tests.
type RecordStore[T domain.Record[T]] struct {
	mu       sync.RWMutex
	records  []T
	exists   bool
	saves    int
	saveErr  error
	backups  map[string][]backup[T]
	archived map[string]T
	now      func() time.Time
}

type backup[T any] struct {
	meta driven.Backup
	rec  T
}

// NewRecordStore creates a store with no document: Load fails with
// domain.ErrNotFound until Save or Seed is called.
func NewRecordStore[T domain.Record[T]]() *RecordStore[T] {
	return &RecordStore[T]{
		backups:  make(map[string][]backup[T]),
		archived: make(map[string]T),
		now:      time.Now,
	}
}

// Seed replaces the stored records.
func (s *RecordStore[T]) Seed(records ...T) *RecordStore[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneAll(records)
	s.exists = true
	return s
}

// FailSave makes every following Save return err; nil clears it.
func (s *RecordStore[T]) FailSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves reports how many Save calls succeeded.
func (s *RecordStore[T]) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Records returns a copy of the stored records.
func (s *RecordStore[T]) Records() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records)
}

// Load returns every stored record.
func (s *RecordStore[T]) Load(_ context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, domain.ErrNotFound
	}
	return cloneAll(s.records), nil
}

// Save replaces the stored records.
func (s *RecordStore[T]) Save(_ context.Context, records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = cloneAll(records)
	s.exists = true
	s.saves++
	return nil
}

// BackupRecord copies the stored form of id.
func (s *RecordStore[T]) BackupRecord(_ context.Context, id string) (driven.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.find(id)
	if !ok {
		return driven.Backup{}, domain.ErrNotFound
	}
	b := backup[T]{
		meta: driven.Backup{
			RecordID:  id,
			Path:      fmt.Sprintf(":memory:/%s/%d", id, len(s.backups[id])),
			CreatedAt: s.now(),
		},
		rec: rec.Clone(),
	}
	s.backups[id] = append(s.backups[id], b)
	return b.meta, nil
}

// Archive moves id out of the live records.
func (s *RecordStore[T]) Archive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.RecordID() == id {
			s.archived[id] = r
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Unarchive moves the archived record with id back into the live records.
func (s *RecordStore[T]) Unarchive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.archived[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.archived, id)
	s.records = append(s.records, rec)
	return nil
}

// Archived returns the archived record with id.
func (s *RecordStore[T]) Archived(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.archived[id]
	return rec, ok
}

// ListBackups returns backups for id, newest first.
func (s *RecordStore[T]) ListBackups(_ context.Context, id string) ([]driven.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]driven.Backup, 0, len(s.backups[id]))
	for i := len(s.backups[id]) - 1; i >= 0; i-- {
		out = append(out, s.backups[id][i].meta)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ReadBackup returns the record stored in b.
func (s *RecordStore[T]) ReadBackup(_ context.Context, b driven.Backup) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cand := range s.backups[b.RecordID] {
		if cand.meta.Path == b.Path {
			return cand.rec.Clone(), nil
		}
	}
	var zero T
	return zero, domain.ErrNotFound
}

func (s *RecordStore[T]) find(id string) (T, bool) {
	for _, r := range s.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func cloneAll[T domain.Record[T]](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
