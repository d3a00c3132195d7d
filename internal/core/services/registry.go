package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/index"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/matching"
	"github.com/rickhohler/biographical/internal/validation"
)

// IndexSpec declares one secondary index of a registry.
type IndexSpec[T any] struct {
	// Name identifies the index in Lookup calls.
	Name string

	// Keys extracts the raw values a record is indexed under.
	Keys func(T) []string

	// Key canonicalises raw values and queries alike.
	// Nil means matching.IndexKey.
	Key func(string) string
}

func (s IndexSpec[T]) key(v string) string {
	if s.Key == nil {
		return matching.IndexKey(v)
	}
	return s.Key(v)
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	observer        driven.RegistryObserver
	requirePresence bool
}

// WithObserver reports mutations, rebuilds and resolver hits to o.
func WithObserver(o driven.RegistryObserver) RegistryOption {
	return func(opts *registryOptions) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithRequirePresence makes Load fail with domain.ErrNotFound when the
// store has no backing document yet.
func WithRequirePresence() RegistryOption {
	return func(opts *registryOptions) {
		opts.requirePresence = true
	}
}

// Registry owns the records of one kind and their secondary indexes.
//
// Every mutation replaces the record, then rebuilds the whole index set while
// still holding the write lock, so a reader never sees an index that
// disagrees with the records. Records go in and come out as deep copies.
type Registry[T domain.Record[T]] struct {
	kind  string
	store driven.RecordStore[T]
	specs []IndexSpec[T]
	opts  registryOptions

	mu      sync.RWMutex
	records map[string]T
	order   []string
	indexes *index.Set

	// gen counts committed mutations; savedGen is the gen last loaded from
	// or written to the store.
	gen      uint64
	savedGen uint64
}

// NewRegistry creates an empty registry. A nil store keeps the registry
// purely in memory: Load is a no-op and Save fails.
func NewRegistry[T domain.Record[T]](kind string, store driven.RecordStore[T], specs []IndexSpec[T], opts ...RegistryOption) *Registry[T] {
	o := registryOptions{observer: noopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry[T]{
		kind:    kind,
		store:   store,
		specs:   specs,
		opts:    o,
		records: make(map[string]T),
	}
	r.rebuildLocked()
	return r
}

// Kind returns the record kind, e.g. "locations".
func (r *Registry[T]) Kind() string {
	return r.kind
}

// Load replaces the collection with the store's contents and rebuilds the
// indexes. A missing document yields an empty registry unless
// WithRequirePresence was given. Duplicate ids keep the last record.
func (r *Registry[T]) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	records, order, err := r.read(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(records, order)
	return nil
}

// ReloadIfSaved replaces the collection from the store like Load, but only
// while every committed mutation has been saved. A mutation committed during
// the reload also keeps the current contents. It reports whether the
// collection was replaced.
func (r *Registry[T]) ReloadIfSaved(ctx context.Context) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	r.mu.RLock()
	start, clean := r.gen, r.gen == r.savedGen
	r.mu.RUnlock()
	if !clean {
		return false, nil
	}

	records, order, err := r.read(ctx)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != start {
		return false, nil
	}
	r.replaceLocked(records, order)
	return true, nil
}

// Unsaved reports whether mutations were committed since the last Load or
// successful Save.
func (r *Registry[T]) Unsaved() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen != r.savedGen
}

func (r *Registry[T]) read(ctx context.Context) (map[string]T, []string, error) {
	loaded, err := r.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && !r.opts.requirePresence {
			loaded = nil
		} else {
			return nil, nil, fmt.Errorf("load %s: %w", r.kind, err)
		}
	}

	records := make(map[string]T, len(loaded))
	order := make([]string, 0, len(loaded))
	for _, rec := range loaded {
		id := rec.RecordID()
		if id == "" {
			return nil, nil, fmt.Errorf("load %s: %w: record without id", r.kind, domain.ErrMalformedRecord)
		}
		if _, dup := records[id]; dup {
			logger.Warn("%s: duplicate id %q in stored data, keeping the last one", r.kind, id)
		} else {
			order = append(order, id)
		}
		records[id] = rec.Clone()
	}
	return records, order, nil
}

func (r *Registry[T]) replaceLocked(records map[string]T, order []string) {
	r.records = records
	r.order = order
	r.savedGen = r.gen
	r.rebuildLocked()
	r.opts.observer.Mutated(r.kind, "load")
	logger.Debug("loaded %d %s", len(order), r.kind)
}

// Save hands the collection, in insertion order, to the store.
func (r *Registry[T]) Save(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("save %s: %w: no store configured", r.kind, domain.ErrInvalidConfiguration)
	}
	r.mu.RLock()
	out := r.listLocked(nil)
	gen := r.gen
	r.mu.RUnlock()
	if err := r.store.Save(ctx, out); err != nil {
		return fmt.Errorf("save %s: %w", r.kind, err)
	}
	r.mu.Lock()
	if gen > r.savedGen {
		r.savedGen = gen
	}
	r.mu.Unlock()
	return nil
}

// Create inserts rec. It fails with domain.ErrDuplicateKey when the id is
// taken and domain.ErrMalformedRecord when rec fails validation.
func (r *Registry[T]) Create(rec T) (T, error) {
	var zero T
	id := rec.RecordID()
	if id == "" {
		return zero, fmt.Errorf("create %s: %w: empty id", r.kind, domain.ErrInvalidInput)
	}
	if err := validation.Struct(rec); err != nil {
		return zero, fmt.Errorf("create %s %q: %w", r.kind, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; ok {
		return zero, fmt.Errorf("create %s %q: %w", r.kind, id, domain.ErrDuplicateKey)
	}
	r.records[id] = rec.Clone()
	r.order = append(r.order, id)
	r.gen++
	r.rebuildLocked()
	r.opts.observer.Mutated(r.kind, "create")
	return rec.Clone(), nil
}

// Read returns a copy of the record with id, or false when absent.
func (r *Registry[T]) Read(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		var zero T
		return zero, false
	}
	return rec.Clone(), true
}

// Update replaces the stored record with the same id.
// It fails with domain.ErrNotFound when the id is absent.
func (r *Registry[T]) Update(rec T) (T, error) {
	var zero T
	id := rec.RecordID()
	if err := validation.Struct(rec); err != nil {
		return zero, fmt.Errorf("update %s %q: %w", r.kind, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return zero, fmt.Errorf("update %s %q: %w", r.kind, id, domain.ErrNotFound)
	}
	r.records[id] = rec.Clone()
	r.gen++
	r.rebuildLocked()
	r.opts.observer.Mutated(r.kind, "update")
	return rec.Clone(), nil
}

// Mutate applies fn to a copy of the record with id and commits the result.
// fn must not change the id. Nothing is committed when fn fails.
func (r *Registry[T]) Mutate(id string, fn func(*T) error) (T, error) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[id]
	if !ok {
		return zero, fmt.Errorf("update %s %q: %w", r.kind, id, domain.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return zero, err
	}
	if next.RecordID() != id {
		return zero, fmt.Errorf("update %s %q: %w: id cannot change", r.kind, id, domain.ErrInvalidInput)
	}
	if err := validation.Struct(next); err != nil {
		return zero, fmt.Errorf("update %s %q: %w", r.kind, id, err)
	}
	r.records[id] = next
	r.gen++
	r.rebuildLocked()
	r.opts.observer.Mutated(r.kind, "update")
	return next.Clone(), nil
}

// Delete removes the record with id and reports whether it existed.
func (r *Registry[T]) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	r.gen++
	r.rebuildLocked()
	r.opts.observer.Mutated(r.kind, "delete")
	return true
}

// put inserts or replaces rec without identity checks. Used to restore
// backups and to roll back a mutation whose persistence failed.
func (r *Registry[T]) put(rec T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := rec.RecordID()
	if _, ok := r.records[id]; !ok {
		r.order = append(r.order, id)
	}
	r.records[id] = rec.Clone()
	r.gen++
	r.rebuildLocked()
	r.opts.observer.Mutated(r.kind, "restore")
}

// List returns copies of every record accepted by all filters, in insertion
// order.
func (r *Registry[T]) List(filters ...func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(filters)
}

func (r *Registry[T]) listLocked(filters []func(T) bool) []T {
	out := make([]T, 0, len(r.order))
next:
	for _, id := range r.order {
		rec := r.records[id]
		for _, f := range filters {
			if !f(rec) {
				continue next
			}
		}
		out = append(out, rec.Clone())
	}
	return out
}

// Len returns the number of records.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Lookup returns copies of the records indexed under value in the named
// index. Unknown index names and unmatched values yield nil.
func (r *Registry[T]) Lookup(indexName, value string) []T {
	var out []T
	r.View(func(s Snapshot[T]) {
		for _, rec := range s.Lookup(indexName, value) {
			out = append(out, rec.Clone())
		}
	})
	return out
}

// View runs fn with a read-locked snapshot. fn must not retain the snapshot
// or call mutating methods of the registry.
func (r *Registry[T]) View(fn func(Snapshot[T])) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(Snapshot[T]{r: r})
}

// rebuildLocked recomputes every index from the current records. Ordinals
// are positions in r.order. Callers hold the write lock.
func (r *Registry[T]) rebuildLocked() {
	start := time.Now()
	names := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		names = append(names, s.Name)
	}
	set := index.NewSet(names...)
	for ord, id := range r.order {
		rec := r.records[id]
		for _, s := range r.specs {
			for _, v := range s.Keys(rec) {
				set.Add(s.Name, s.key(v), uint32(ord))
			}
		}
	}
	r.indexes = set
	took := time.Since(start)
	r.opts.observer.Rebuilt(r.kind, len(r.order), took)
	logger.Debug("rebuilt %d %s indexes over %d records in %s", len(r.specs), r.kind, len(r.order), took)
}

func (r *Registry[T]) spec(name string) (IndexSpec[T], bool) {
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return IndexSpec[T]{}, false
}

// Snapshot is a read-only view valid only inside Registry.View.
// Records it returns are shared with the registry and must not be modified.
type Snapshot[T domain.Record[T]] struct {
	r *Registry[T]
}

// Lookup returns the records indexed under value, in insertion order.
func (s Snapshot[T]) Lookup(indexName, value string) []T {
	spec, ok := s.r.spec(indexName)
	if !ok {
		return nil
	}
	ords := s.r.indexes.Lookup(indexName, spec.key(value))
	if len(ords) == 0 {
		return nil
	}
	out := make([]T, 0, len(ords))
	for _, ord := range ords {
		out = append(out, s.r.records[s.r.order[ord]])
	}
	return out
}

// Keys returns every key stored in the named index.
func (s Snapshot[T]) Keys(indexName string) []string {
	if _, ok := s.r.spec(indexName); !ok {
		return nil
	}
	return s.r.indexes.Index(indexName).Keys()
}

// Get returns the record with id.
func (s Snapshot[T]) Get(id string) (T, bool) {
	rec, ok := s.r.records[id]
	return rec, ok
}

// Each calls fn for every record in insertion order until fn returns false.
func (s Snapshot[T]) Each(fn func(T) bool) {
	for _, id := range s.r.order {
		if !fn(s.r.records[id]) {
			return
		}
	}
}

// Len returns the number of records.
func (s Snapshot[T]) Len() int {
	return len(s.r.order)
}

type noopObserver struct{}

func (noopObserver) Mutated(string, string)             {}
func (noopObserver) Rebuilt(string, int, time.Duration) {}
func (noopObserver) Resolved(string, domain.MatchType)  {}
