// Package index keeps keyed posting sets of record ordinals as roaring
// bitmaps. An Index is disposable: a registry rebuilds its whole Set from the
// current records after every mutation and swaps it in under its own lock.
// Index and Set are not safe for concurrent mutation.
package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index maps a normalised key to the ordinals of the records sharing it.
type Index struct {
	postings map[string]*roaring.Bitmap
}

// New creates an empty index.
func New() *Index {
	return &Index{postings: make(map[string]*roaring.Bitmap)}
}

// Add records ord under key. Empty keys are ignored.
func (ix *Index) Add(key string, ord uint32) {
	if key == "" {
		return
	}
	bm, ok := ix.postings[key]
	if !ok {
		bm = roaring.New()
		ix.postings[key] = bm
	}
	bm.Add(ord)
}

// Lookup returns the ordinals stored under key in ascending order.
func (ix *Index) Lookup(key string) []uint32 {
	bm, ok := ix.postings[key]
	if !ok {
		return nil
	}
	return bm.ToArray()
}

// Keys returns the distinct keys in sorted order.
func (ix *Index) Keys() []string {
	keys := make([]string, 0, len(ix.postings))
	for k := range ix.postings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of distinct keys.
func (ix *Index) Len() int {
	return len(ix.postings)
}

// Set is a group of named indexes built together.
type Set struct {
	indexes map[string]*Index
}

// NewSet creates a set with an empty index per name.
func NewSet(names ...string) *Set {
	s := &Set{indexes: make(map[string]*Index, len(names))}
	for _, n := range names {
		s.indexes[n] = New()
	}
	return s
}

// Index returns the named index, creating it when absent.
func (s *Set) Index(name string) *Index {
	ix, ok := s.indexes[name]
	if !ok {
		ix = New()
		s.indexes[name] = ix
	}
	return ix
}

// Add records ord under key in the named index.
func (s *Set) Add(name, key string, ord uint32) {
	s.Index(name).Add(key, ord)
}

// Lookup returns the ordinals under key in the named index.
// An unknown index name yields nil.
func (s *Set) Lookup(name, key string) []uint32 {
	ix, ok := s.indexes[name]
	if !ok {
		return nil
	}
	return ix.Lookup(key)
}
