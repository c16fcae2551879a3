// Package locktable implements the storage node's sentence-level lock
// table (spec.md §4.2/§5): a single mutex-guarded collection of
// SentenceLock entries, keyed by (filename, sentence_index), shared by
// every per-client worker goroutine. Grounded on the teacher's
// sync.RWMutex-guarded map-of-slices lock manager in
// pkg/store/metadata/memory/locks.go, adapted from byte-range locks to
// whole-sentence exclusive locks.
package locktable

import (
	"fmt"
	"sync"

	"github.com/opendocstore/docstore/internal/log"
)

type key struct {
	filename string
	sentence int
}

// Table is the storage node's single global sentence-lock table
// (spec.md §4.2: "a single global critical section, not per-file").
type Table struct {
	mu    sync.Mutex
	locks map[key]string // -> holder username
}

// New returns an empty Table.
func New() *Table {
	return &Table{locks: make(map[key]string)}
}

// TryAcquire implements spec.md §4.2's try_acquire: absent -> grant;
// present with the same holder -> idempotent success; present with a
// different holder -> deny (false).
func (t *Table) TryAcquire(filename string, sentence int, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{filename, sentence}
	holder, held := t.locks[k]
	if !held {
		t.locks[k] = username
		return true
	}
	return holder == username
}

// Release removes exactly the (filename, sentence, username) entry,
// logging a warning on a miss (spec.md §4.2).
func (t *Table) Release(filename string, sentence int, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{filename, sentence}
	holder, held := t.locks[k]
	if !held || holder != username {
		log.Warn("release of sentence lock not held",
			"filename", filename, "sentence", sentence, "username", username)
		return
	}
	delete(t.locks, k)
}

// HolderOf returns the current holder of (filename, sentence), if any. The
// LOCKED response does not include the holder.
func (t *Table) HolderOf(filename string, sentence int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	holder, held := t.locks[key{filename, sentence}]
	return holder, held
}

// Count returns the number of currently held locks. The held-locks gauge
// at /metrics (SPEC_FULL.md Module Addition B) is kept by the storage
// server's own Inc/Dec calls, not read from Count.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// ReleaseAllHeldBy force-releases every lock username holds on filename.
// The disconnect rollback and the idle-session sweep do not use it: the
// worker releases its single lock with Release. Since a worker holds at
// most one session/lock at a time, this normally removes zero or one
// entry; it scans the whole table regardless.
func (t *Table) ReleaseAllHeldBy(filename, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, holder := range t.locks {
		if k.filename == filename && holder == username {
			delete(t.locks, k)
		}
	}
}

func (k key) String() string {
	return fmt.Sprintf("%s#%d", k.filename, k.sentence)
}
