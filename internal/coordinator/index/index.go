// Package index implements the coordinator's authoritative filename index:
// a plain map keyed by filename (spec.md §4.1's "open-addressing or chained
// hash table" — Go's builtin map already gives us that) fronted by a
// bounded LRU promotion cache for find_file. Both structures are only ever
// touched from the coordinator's single serializing goroutine
// (internal/coordinator.Server's command loop), so neither needs its own
// locking — mirroring spec.md §5's "coordinator index and LRU cache:
// protected by the single-threaded loop."
package index

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/opendocstore/docstore/pkg/docmodel"
)

// Entry is the coordinator-side FileIndexEntry of spec.md §3: a filename,
// the storage node that owns it, and an advisory metadata snapshot used
// only for display (VIEW/INFO/LIST); the owning storage node's .meta file
// is always authoritative (invariant I3).
type Entry struct {
	Filename    string
	StorageAddr string // "ip:client_port" of the owning storage node
	Meta        docmodel.Metadata
}

// Cache capacity matches spec.md §4.1's literal "capacity 10".
const lruCapacity = 10

// Index is the coordinator's filename -> Entry map plus its LRU lookup
// cache. Not safe for concurrent use by design: callers must only reach it
// from the coordinator's single command-processing goroutine.
type Index struct {
	files map[string]*Entry
	cache *lru.Cache[string, *Entry]

	hits, misses int
}

// New creates an empty Index with a fixed-capacity LRU cache.
func New() *Index {
	cache, err := lru.New[string, *Entry](lruCapacity)
	if err != nil {
		// Only returns an error for a non-positive size; lruCapacity is a
		// compile-time constant, so this can't happen.
		panic(err)
	}
	return &Index{
		files: make(map[string]*Entry),
		cache: cache,
	}
}

// Find looks up a filename, consulting the LRU cache first exactly as
// spec.md §4.1 describes find_file: cache hit returns immediately, cache
// miss falls through to the map and promotes the result to the cache.
// Reports whether the entry was found.
func (idx *Index) Find(filename string) (*Entry, bool) {
	if e, ok := idx.cache.Get(filename); ok {
		idx.hits++
		return e, true
	}
	idx.misses++

	e, ok := idx.files[filename]
	if !ok {
		return nil, false
	}
	idx.cache.Add(filename, e)
	return e, true
}

// Put inserts or replaces an entry (used by CREATE). Does not touch the LRU cache — the next Find will
// populate it on miss, matching the spec's promote-on-read discipline.
func (idx *Index) Put(e *Entry) {
	idx.files[e.Filename] = e
}

// Delete removes a filename from both structures. The LRU cache entry is
// removed *before* the map entry, matching spec.md §4.1's explicit
// ordering requirement ("DELETE must remove the LRU entry before freeing
// the underlying hash entry to avoid dangling references") — Go's garbage
// collector makes a literal dangling pointer impossible, but the ordering
// is kept anyway for fidelity to the documented invariant, in case a
// future cache implementation reintroduces raw pointers.
func (idx *Index) Delete(filename string) {
	idx.cache.Remove(filename)
	delete(idx.files, filename)
}

// Len returns the number of distinct filenames currently indexed.
func (idx *Index) Len() int { return len(idx.files) }

// All returns every entry, for VIEW/LIST enumeration. Order is
// unspecified (map iteration order).
func (idx *Index) All() []*Entry {
	out := make([]*Entry, 0, len(idx.files))
	for _, e := range idx.files {
		out = append(out, e)
	}
	return out
}

// HitMissCounts returns cumulative LRU hit/miss counts, exposed at
// /metrics (SPEC_FULL.md Module Addition A) and used by the end-to-end
// cache-behavior scenario in spec.md §8.6.
func (idx *Index) HitMissCounts() (hits, misses int) { return idx.hits, idx.misses }
